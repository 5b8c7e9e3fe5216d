package application

import (
	"context"
	"fmt"
	"log/slog"

	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/internal/config"
	"thirdcoast.systems/ytcomments/internal/db"
	"thirdcoast.systems/ytcomments/internal/videoid"
	"thirdcoast.systems/ytcomments/pkg/innertube"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
	"thirdcoast.systems/ytcomments/pkg/ytdlp"
)

// NewProvider builds the comment source selected by conf.Provider.
func NewProvider(conf config.Config) (comments.Provider, error) {
	switch conf.Provider {
	case "", "innertube":
		return innertube.NewClient(conf.YouTubeBaseURL,
			innertube.WithTimeout(conf.HTTPTimeout),
			innertube.WithContinuationDelay(conf.ContinuationDelay),
			innertube.WithRetries(uint64(conf.FetchRetries), 0),
			innertube.WithLanguage(conf.Language()),
		), nil
	case "ytdlp":
		c := ytdlp.New()
		c.Path = conf.YtdlpPath
		c.MaxComments = conf.YtdlpMaxComments
		c.ExtraArgs = conf.YtdlpExtraArgs
		c.LogCallback = func(stream, line string) {
			slog.Debug("yt-dlp", "stream", stream, "line", line)
		}
		return c, nil
	case "file":
		return comments.FileProvider{Path: conf.InputFile}, nil
	default:
		return nil, fmt.Errorf("unknown comments provider %q", conf.Provider)
	}
}

// Service runs the download pipeline: identify, fetch and filter, sort.
type Service struct {
	Provider comments.Provider

	// Archive receives every successful download. Nil disables archiving.
	Archive db.Archiver

	// Language is recorded with archived downloads.
	Language language.Tag
}

type DownloadRequest struct {
	Input      string
	MinLikes   int
	WantTitle  bool
	OnProgress func(processed, kept int)

	// OnVideoID is called once the identifier has been extracted.
	OnVideoID func(videoID string)
}

type Download struct {
	VideoID   string
	Title     string
	Entries   []comments.Entry
	Processed int
}

// Download extracts the video ID from req.Input, collects qualifying
// comments and returns them sorted by likes, highest first.
//
// Errors wrap videoid.ErrInvalidIdentifier, comments.ErrFetchFailure or
// comments.ErrEmptyResult. Title lookup and archiving are best effort.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (*Download, error) {
	videoID, err := videoid.ExtractVideoID(req.Input)
	if err != nil {
		return nil, err
	}
	if req.OnVideoID != nil {
		req.OnVideoID(videoID)
	}

	res, err := comments.Collect(ctx, s.Provider, videoID, comments.Options{
		MinLikes:   req.MinLikes,
		OnProgress: req.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	d := &Download{
		VideoID:   videoID,
		Entries:   comments.SortByLikes(res.Entries),
		Processed: res.Processed,
	}

	if req.WantTitle {
		if t, ok := s.Provider.(comments.Titler); ok {
			title, err := t.Title(ctx, videoid.WatchURL(videoID))
			if err != nil {
				slog.Warn("could not fetch video title", "video_id", videoID, "error", err)
			} else {
				d.Title = title
			}
		}
	}

	if s.Archive != nil {
		if _, err := ArchiveResult(ctx, s.Archive, videoID, d.Title, s.Language, req.MinLikes, d.Entries); err != nil {
			slog.Warn("failed to archive comments", "video_id", videoID, "error", err)
		}
	}

	return d, nil
}
