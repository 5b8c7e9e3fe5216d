package comments

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"strings"
)

// ParentFromID derives the parent comment ID from a YouTube reply ID, which
// has the form "<parent>.<reply>". Top-level IDs yield "".
func ParentFromID(cid string) string {
	parent, _, ok := strings.Cut(cid, ".")
	if !ok {
		return ""
	}
	return parent
}

// FileProvider replays a JSON-lines dump in the format written by
// youtube-comment-downloader: one comment object per line, replies either
// nested under "replies" or on their own lines right after their parent.
//
// Lines that are not JSON objects become degenerate entries.
type FileProvider struct {
	Path string
}

// maxLineSize bounds a single dump line.
const maxLineSize = 4 << 20

func (p FileProvider) Comments(ctx context.Context, _ string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		f, err := os.Open(p.Path)
		if err != nil {
			yield(Entry{}, fmt.Errorf("open comments dump: %w", err))
			return
		}
		defer f.Close()

		var pending *Comment
		flush := func() bool {
			if pending == nil {
				return true
			}
			c := pending
			pending = nil
			return yield(Structured(c), nil)
		}

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}

			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}

			e := decodeLine(line)
			if e.IsDegenerate() {
				if !flush() || !yield(e, nil) {
					return
				}
				continue
			}

			c := e.Comment
			if c.Parent == "" {
				c.Parent = ParentFromID(c.CID)
			}
			for _, r := range c.Replies {
				if r.Comment != nil && r.Comment.Parent == "" {
					r.Comment.Parent = c.CID
				}
			}
			if c.Parent != "" && pending != nil && pending.CID == c.Parent {
				pending.Replies = append(pending.Replies, e)
				continue
			}

			if !flush() {
				return
			}
			if c.Parent != "" {
				// A reply whose parent is not the current comment stays top-level.
				if !yield(e, nil) {
					return
				}
				continue
			}
			pending = c
		}
		if err := sc.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("read comments dump: %w", err))
			return
		}
		flush()
	}
}

func decodeLine(line string) Entry {
	if strings.HasPrefix(line, "{") || strings.HasPrefix(line, `"`) {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			return e
		}
	}
	return Degenerate(line)
}
