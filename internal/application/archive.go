package application

import (
	"context"

	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/db"
	"thirdcoast.systems/ytcomments/internal/videoid"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
)

// ArchiveResult stores entries for videoID through a, in the order given.
func ArchiveResult(ctx context.Context, a db.Archiver, videoID, title string, lang language.Tag, minLikes int, entries []comments.Entry) (int, error) {
	sourceURL, _, err := videoid.NormalizeSourceURL(videoid.WatchURL(videoID))
	if err != nil {
		return 0, err
	}

	records := make([]comments.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Record())
	}

	return a.ArchiveComments(ctx, db.ArchivedVideo{
		UUID:      videoid.VideoUUID(videoid.Domain, videoID),
		VideoID:   videoID,
		SourceURL: sourceURL,
		Title:     title,
		Language:  lang,
		MinLikes:  minLikes,
	}, records)
}
