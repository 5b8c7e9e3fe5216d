package comments

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"thirdcoast.systems/ytcomments/internal/videoid"
)

var (
	// ErrFetchFailure wraps any error reported by a provider.
	ErrFetchFailure = errors.New("failed to download comments")
	// ErrEmptyResult means the fetch succeeded but nothing qualified.
	ErrEmptyResult = errors.New("no comments found")
)

// ProgressInterval is how many top-level entries pass between progress
// callbacks.
const ProgressInterval = 50

// Provider produces the comments of one video as a lazy sequence. Each
// top-level Comment may carry its replies. A non-nil error ends the
// sequence.
type Provider interface {
	Comments(ctx context.Context, watchURL string) iter.Seq2[Entry, error]
}

// Titler is implemented by providers that can look up a video's title.
type Titler interface {
	Title(ctx context.Context, watchURL string) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, watchURL string) iter.Seq2[Entry, error]

func (f ProviderFunc) Comments(ctx context.Context, watchURL string) iter.Seq2[Entry, error] {
	return f(ctx, watchURL)
}

// Options tunes Collect.
type Options struct {
	// MinLikes is the inclusive like-count threshold.
	MinLikes int

	// OnProgress, when set, is called every ProgressInterval top-level
	// entries with the number processed so far and the number kept before
	// the current one.
	OnProgress func(processed, kept int)
}

// Result is the filtered, flattened output of Collect.
type Result struct {
	VideoID   string
	Entries   []Entry
	Processed int
}

// Collect fetches the comments of videoID from p, drops degenerate entries,
// keeps comments and replies whose likes reach opts.MinLikes and flattens
// them into one list. Replies follow their parent's position.
//
// Provider errors abort the whole run and discard partial results.
func Collect(ctx context.Context, p Provider, videoID string, opts Options) (*Result, error) {
	watchURL := videoid.WatchURL(videoID)
	res := &Result{VideoID: videoID}

	slog.Debug("collecting comments", "video_id", videoID, "min_likes", opts.MinLikes)

	for entry, err := range p.Comments(ctx, watchURL) {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
		}

		res.Processed++
		if opts.OnProgress != nil && res.Processed%ProgressInterval == 0 {
			opts.OnProgress(res.Processed, len(res.Entries))
		}

		if entry.IsDegenerate() {
			continue
		}

		if FetchLikes(entry.Comment.Votes) >= opts.MinLikes {
			res.Entries = append(res.Entries, entry)
		}

		for _, reply := range entry.Comment.Replies {
			if reply.IsDegenerate() {
				continue
			}
			if FetchLikes(reply.Comment.Votes) >= opts.MinLikes {
				res.Entries = append(res.Entries, reply)
			}
		}
	}

	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrEmptyResult)
	}

	slog.Debug("collected comments", "video_id", videoID, "processed", res.Processed, "kept", len(res.Entries))
	return res, nil
}
