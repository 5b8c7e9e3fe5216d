package videoid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID_URLShapes(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s":        "dQw4w9WgXcQ",
		"youtube.com/watch?v=a_b-c1D2e3F":                      "a_b-c1D2e3F",
		`https://www.youtube.com/watch\v\=dQw4w9WgXcQ`:         "dQw4w9WgXcQ",
		"https://www.youtube.com/watchv=dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=tracking":             "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1": "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
	}

	for in, want := range cases {
		got, err := ExtractVideoID(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestExtractVideoID_BareIDReturnedUnchanged(t *testing.T) {
	got, err := ExtractVideoID("dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Equal(t, "dQw4w9WgXcQ", got)

	// Any 11 characters without a slash pass through unvalidated.
	got, err = ExtractVideoID("hello world")
	require.NoError(t, err)
	require.Equal(t, "hello world", got)

	got, err = ExtractVideoID("!!!!!!!!!!!")
	require.NoError(t, err)
	require.Equal(t, "!!!!!!!!!!!", got)
}

func TestExtractVideoID_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"abc",
		"https://example.com/watch?v=dQw4w9WgXcQ0",
		"https://vimeo.com/123456789",
		"https://www.youtube.com/watch?v=short",
		`https://www.youtube.com/watch\?v\=dQw4w9WgXcQ`,
		"dQw4w9Wg/cQ",
	} {
		_, err := ExtractVideoID(in)
		require.ErrorIs(t, err, ErrInvalidIdentifier, in)
	}
}

func TestExtractVideoID_PriorityOrder(t *testing.T) {
	// The watch pattern outranks the embed pattern when both are present.
	got, err := ExtractVideoID("https://www.youtube.com/embed/AAAAAAAAAAA?next=youtube.com/watch?v=BBBBBBBBBBB")
	require.NoError(t, err)
	require.Equal(t, "BBBBBBBBBBB", got)
}

func TestWatchURL(t *testing.T) {
	require.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}

func TestNamespaceUUIDForDomain_YouTubeExample(t *testing.T) {
	ns := NamespaceUUIDForDomain("youtube.com")
	require.Equal(t, uuid.MustParse("e500b8bc-9419-5269-b157-d8b9584d5b9e"), ns)
}

func TestVideoUUID_YouTubeExample(t *testing.T) {
	id := VideoUUID("youtube.com", "ggLajT7aMMk")
	require.Equal(t, uuid.MustParse("ac236969-fc24-5d7d-92b9-ef5e30e26a63"), id)
}

func TestResolveCanonicalDomain_Aliases(t *testing.T) {
	require.Equal(t, "youtube.com", ResolveCanonicalDomain("youtu.be"))
	require.Equal(t, "youtube.com", ResolveCanonicalDomain("www.youtube.com"))
	require.Equal(t, "youtube.com", ResolveCanonicalDomain("M.YouTube.com:443"))
	require.Equal(t, "example.com", ResolveCanonicalDomain("example.com"))
}

func TestNormalizeSourceURL(t *testing.T) {
	n, id, err := NormalizeSourceURL("https://www.youtube.com/watch?v=ggLajT7aMMk&t=123s&si=abc")
	require.NoError(t, err)
	require.Equal(t, "ggLajT7aMMk", id)
	require.Equal(t, "https://youtube.com/watch?v=ggLajT7aMMk", n)

	n, _, err = NormalizeSourceURL("youtu.be/ggLajT7aMMk?t=120")
	require.NoError(t, err)
	require.Equal(t, "https://youtube.com/watch?v=ggLajT7aMMk", n)

	n, _, err = NormalizeSourceURL("ggLajT7aMMk")
	require.NoError(t, err)
	require.Equal(t, "https://youtube.com/watch?v=ggLajT7aMMk", n)

	_, _, err = NormalizeSourceURL("https://notyoutube.org/x?u=youtube.com/watch?v=ggLajT7aMMk")
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, _, err = NormalizeSourceURL("  ")
	require.Error(t, err)
}
