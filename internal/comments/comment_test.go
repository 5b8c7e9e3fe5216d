package comments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntry_RecordStructured(t *testing.T) {
	e := Structured(&Comment{Time: "2 hours ago", Author: "B", Votes: "3", CID: "c1.c2", Parent: "c1", Text: "line one\r\nline two"})
	r := e.Record()
	require.Equal(t, Record{
		PublishedTime: "2 hours ago",
		Author:        "B",
		Likes:         3,
		CommentID:     "c1.c2",
		ParentID:      "c1",
		Comment:       "line one  line two",
	}, r)
	require.Equal(t, []string{"2 hours ago", "B", "3", "c1.c2", "c1", "line one  line two"}, r.Strings())
}

func TestEntry_RecordDefaults(t *testing.T) {
	r := Structured(&Comment{Text: "only text"}).Record()
	require.Equal(t, []string{Unknown, Unknown, "0", Unknown, "", "only text"}, r.Strings())

	r = Degenerate("bare\nline").Record()
	require.Equal(t, []string{Unknown, Unknown, "0", Unknown, "", "bare line"}, r.Strings())
}

func TestEntry_UnmarshalJSON(t *testing.T) {
	var entries []Entry
	err := json.Unmarshal([]byte(`[
		{"cid":"c1","text":"hi","author":"A","votes":12,"time":"1 day ago",
		 "replies":[{"cid":"c1.r","text":"yo","votes":"2","parent":"c1"},"broken reply"]},
		"broken",
		{"cid":"c2","votes":1.5,"replies":"not-a-list"}
	]`), &entries)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	c1 := entries[0].Comment
	require.NotNil(t, c1)
	require.Equal(t, 12, c1.Votes)
	require.Len(t, c1.Replies, 2)
	require.Equal(t, "2", c1.Replies[0].Comment.Votes)
	require.True(t, c1.Replies[1].IsDegenerate())
	require.Equal(t, "broken reply", c1.Replies[1].Raw)

	require.True(t, entries[1].IsDegenerate())
	require.Equal(t, "broken", entries[1].Raw)

	c2 := entries[2].Comment
	require.Equal(t, 1.5, c2.Votes)
	require.Empty(t, c2.Replies)
}

func TestEntry_MarshalJSON(t *testing.T) {
	b, err := json.Marshal([]Entry{
		Structured(&Comment{CID: "c1", Text: "hi", Author: "A", Votes: "12", Time: "now"}),
		Structured(&Comment{CID: "c1.r", Text: "re", Author: "B", Votes: nil, Time: "now", Parent: "c1"}),
		Degenerate("raw"),
	})
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"cid":"c1","text":"hi","author":"A","votes":12,"time":"now"},
		{"cid":"c1.r","text":"re","author":"B","votes":0,"time":"now","parent":"c1"},
		"raw"
	]`, string(b))
}

func TestEntry_IsReply(t *testing.T) {
	require.True(t, Structured(&Comment{Parent: "p"}).IsReply())
	require.False(t, Structured(&Comment{}).IsReply())
	require.False(t, Degenerate("x").IsReply())
}

func TestParentFromID(t *testing.T) {
	require.Equal(t, "Ugx123", ParentFromID("Ugx123.9abc"))
	require.Equal(t, "", ParentFromID("Ugx123"))
}
