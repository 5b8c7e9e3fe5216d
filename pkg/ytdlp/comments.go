package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/ytcomments/internal/comments"
)

const rootParent = "root"

// ytComment is one element of the "comments" array yt-dlp writes.
type ytComment struct {
	ID        string      `json:"id"`
	Parent    string      `json:"parent"`
	Text      string      `json:"text"`
	Author    string      `json:"author"`
	LikeCount json.Number `json:"like_count"`
	Timestamp *int64      `json:"timestamp"`
	TimeText  string      `json:"_time_text"`
}

// CommentArgs returns the yt-dlp arguments that make --dump-single-json
// include the comment list.
func (c *Client) CommentArgs() []string {
	limit := "all"
	if c.MaxComments > 0 {
		limit = strconv.Itoa(c.MaxComments)
	}
	return []string{
		"--write-comments",
		"--extractor-args", "youtube:max_comments=" + limit + ",all,all,all",
	}
}

// Title returns the video title from yt-dlp's metadata.
func (c *Client) Title(ctx context.Context, watchURL string) (string, error) {
	info, err := c.GetInfo(ctx, watchURL)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Comments runs yt-dlp once and yields its comments as top-level entries
// with their replies nested beneath them. yt-dlp lists replies directly
// after their parent; a reply whose parent was not seen is yielded on its
// own with Parent set.
func (c *Client) Comments(ctx context.Context, watchURL string) iter.Seq2[comments.Entry, error] {
	return func(yield func(comments.Entry, error) bool) {
		info, err := c.GetInfo(ctx, watchURL, c.CommentArgs()...)
		if err != nil {
			yield(comments.Entry{}, err)
			return
		}

		entries, err := c.decodeComments(info.Comments)
		if err != nil {
			yield(comments.Entry{}, err)
			return
		}
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (c *Client) decodeComments(raw []json.RawMessage) ([]comments.Entry, error) {
	var out []comments.Entry
	byID := map[string]*comments.Comment{}
	now := c.clock()

	for i, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 || msg[0] != '{' {
			var text string
			if err := json.Unmarshal(msg, &text); err != nil {
				text = string(msg)
			}
			out = append(out, comments.Degenerate(text))
			continue
		}

		var yc ytComment
		dec := json.NewDecoder(bytes.NewReader(msg))
		if err := dec.Decode(&yc); err != nil {
			return nil, fmt.Errorf("ytdlp: decode comment %d: %w", i, err)
		}

		cm := &comments.Comment{
			Time:   commentTime(yc, now),
			Author: yc.Author,
			Votes:  likeCount(yc.LikeCount),
			CID:    yc.ID,
			Text:   yc.Text,
		}
		if yc.Parent != "" && yc.Parent != rootParent {
			cm.Parent = yc.Parent
			if p, ok := byID[yc.Parent]; ok {
				p.Replies = append(p.Replies, comments.Structured(cm))
				continue
			}
		} else {
			byID[cm.CID] = cm
		}
		out = append(out, comments.Structured(cm))
	}
	return out, nil
}

func commentTime(yc ytComment, now time.Time) string {
	if yc.TimeText != "" {
		return yc.TimeText
	}
	if yc.Timestamp != nil {
		return humanize.RelTime(time.Unix(*yc.Timestamp, 0), now, "ago", "from now")
	}
	return ""
}

// likeCount keeps the raw number; null stays nil.
func likeCount(n json.Number) any {
	if n == "" {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
