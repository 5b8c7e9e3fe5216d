// Package comments holds the comment model and the fetch, filter and sort
// stages of the download pipeline.
package comments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown is written for structured fields a record does not carry.
const Unknown = "Unknown"

// Comment is a single comment or reply as reported by a provider.
//
// Votes keeps the provider's raw like count (int, float64, string, bool or
// nil); see FetchLikes and SortLikes for how it becomes a number.
type Comment struct {
	Time    string
	Author  string
	Votes   any
	CID     string
	Parent  string
	Text    string
	Replies []Entry
}

// Entry is one item of a provider's output. It is either a structured
// Comment or, when the provider could not parse an item, the raw text of
// that item.
type Entry struct {
	Comment *Comment
	Raw     string
}

// Structured wraps c in an Entry.
func Structured(c *Comment) Entry { return Entry{Comment: c} }

// Degenerate wraps raw provider text in an Entry.
func Degenerate(raw string) Entry { return Entry{Raw: raw} }

// IsDegenerate reports whether e carries only raw text.
func (e Entry) IsDegenerate() bool { return e.Comment == nil }

// IsReply reports whether e is a structured reply to another comment.
func (e Entry) IsReply() bool { return e.Comment != nil && e.Comment.Parent != "" }

// Record is the flat, output-ready view of an Entry. Every exporter writes
// these fields in this order.
type Record struct {
	PublishedTime string `json:"published_time"`
	Author        string `json:"author"`
	Likes         int    `json:"likes"`
	CommentID     string `json:"comment_id"`
	ParentID      string `json:"parent_id"`
	Comment       string `json:"comment"`
}

// Columns is the fixed header shared by all tabular exports.
var Columns = []string{"published_time", "author", "likes", "comment_id", "parent_id", "comment"}

// Record flattens e. Degenerate entries get Unknown placeholders and zero
// likes; structured ones use fetch-time like coercion.
func (e Entry) Record() Record {
	if e.IsDegenerate() {
		return Record{
			PublishedTime: Unknown,
			Author:        Unknown,
			Likes:         0,
			CommentID:     Unknown,
			ParentID:      "",
			Comment:       NormalizeText(e.Raw),
		}
	}
	c := e.Comment
	return Record{
		PublishedTime: orUnknown(c.Time),
		Author:        orUnknown(c.Author),
		Likes:         FetchLikes(c.Votes),
		CommentID:     orUnknown(c.CID),
		ParentID:      c.Parent,
		Comment:       NormalizeText(c.Text),
	}
}

// Strings returns the record as CSV cells in Columns order.
func (r Record) Strings() []string {
	return []string{r.PublishedTime, r.Author, fmt.Sprint(r.Likes), r.CommentID, r.ParentID, r.Comment}
}

// NormalizeText replaces carriage returns and newlines with spaces.
func NormalizeText(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// wireComment uses the keys of youtube-comment-downloader style JSON.
type wireComment struct {
	Time    string          `json:"time"`
	Author  string          `json:"author"`
	Votes   any             `json:"votes"`
	CID     string          `json:"cid"`
	Parent  string          `json:"parent,omitempty"`
	Text    string          `json:"text"`
	Replies json.RawMessage `json:"replies,omitempty"`
}

// UnmarshalJSON decodes a JSON string as a degenerate entry and a JSON
// object as a Comment. A replies value that is not a list is ignored.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Degenerate(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var w wireComment
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode comment: %w", err)
	}

	c := &Comment{
		Time:   w.Time,
		Author: w.Author,
		Votes:  plainNumber(w.Votes),
		CID:    w.CID,
		Parent: w.Parent,
		Text:   w.Text,
	}
	if len(w.Replies) > 0 {
		var replies []Entry
		if err := json.Unmarshal(w.Replies, &replies); err == nil {
			c.Replies = replies
		}
	}
	*e = Structured(c)
	return nil
}

// MarshalJSON writes degenerate entries as strings and comments as objects
// with their coerced like count.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.IsDegenerate() {
		return json.Marshal(e.Raw)
	}
	c := e.Comment
	w := struct {
		CID    string `json:"cid"`
		Text   string `json:"text"`
		Author string `json:"author"`
		Votes  int    `json:"votes"`
		Time   string `json:"time"`
		Parent string `json:"parent,omitempty"`
	}{c.CID, c.Text, c.Author, FetchLikes(c.Votes), c.Time, c.Parent}
	return json.Marshal(w)
}

// plainNumber turns json.Number into int when it is integral and float64
// otherwise, so coercion sees the same kinds a provider would produce.
func plainNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
