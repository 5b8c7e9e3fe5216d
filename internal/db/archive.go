package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
)

// ErrArchiveNotMigrated is returned when the archive tables do not exist.
var ErrArchiveNotMigrated = errors.New("comment archive tables missing, run pg-migrator")

// ArchivedVideo describes one archived download.
type ArchivedVideo struct {
	UUID      uuid.UUID
	VideoID   string
	SourceURL string
	Title     string
	Language  language.Tag
	MinLikes  int
}

const upsertArchivedVideo = `
INSERT INTO archived_videos (video_uuid, video_id, source_url, title, language, min_likes, comment_count, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (video_uuid) DO UPDATE SET
    source_url    = EXCLUDED.source_url,
    title         = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE archived_videos.title END,
    language      = EXCLUDED.language,
    min_likes     = EXCLUDED.min_likes,
    comment_count = EXCLUDED.comment_count,
    fetched_at    = now()`

const upsertVideoComment = `
INSERT INTO video_comments (video_uuid, comment_id, parent_id, author, published_time, likes, body, position, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (video_uuid, comment_id) DO UPDATE SET
    parent_id      = EXCLUDED.parent_id,
    author         = EXCLUDED.author,
    published_time = EXCLUDED.published_time,
    likes          = EXCLUDED.likes,
    body           = EXCLUDED.body,
    position       = EXCLUDED.position,
    archived_at    = now()`

const archiveBatchSize = 500

// Archiver stores downloaded comments.
type Archiver interface {
	ArchiveComments(ctx context.Context, v ArchivedVideo, records []comments.Record) (int, error)
}

var _ Archiver = (*DatabaseConnection)(nil)

// ArchiveComments upserts v and its comment rows in one transaction, keyed
// by (video_uuid, comment_id). Rows without a comment ID are skipped.
// It returns the number of rows written.
func (db *DatabaseConnection) ArchiveComments(ctx context.Context, v ArchivedVideo, records []comments.Record) (int, error) {
	rows := make([]comments.Record, 0, len(records))
	for _, r := range records {
		if r.CommentID == "" || r.CommentID == comments.Unknown {
			continue
		}
		rows = append(rows, r)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, upsertArchivedVideo, v.UUID, v.VideoID, v.SourceURL, v.Title, v.Language, v.MinLikes, len(rows)); err != nil {
		if IsUndefinedColumnErr(err) {
			return 0, fmt.Errorf("%w: %w", ErrArchiveNotMigrated, err)
		}
		return 0, fmt.Errorf("upsert archived video: %w", err)
	}

	for i := 0; i < len(rows); i += archiveBatchSize {
		end := min(i+archiveBatchSize, len(rows))

		batch := &pgx.Batch{}
		for pos, r := range rows[i:end] {
			batch.Queue(upsertVideoComment,
				v.UUID, r.CommentID, r.ParentID, r.Author, r.PublishedTime, r.Likes, r.Comment, i+pos)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("upsert comments batch %d-%d: %w", i, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit archive: %w", err)
	}

	slog.Info("comments archived", "video_id", v.VideoID, "video_uuid", v.UUID, "rows", len(rows))
	return len(rows), nil
}
