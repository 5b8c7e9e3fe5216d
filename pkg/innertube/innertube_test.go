package innertube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"thirdcoast.systems/ytcomments/internal/comments"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
)

const testAPIKey = "AIzaTestKey"

func watchPageHTML(initialData string) string {
	return `<!doctype html><html><head>
<title>Fallback Title - YouTube</title>
<meta property="og:title" content="Tom &amp; Jerry">
</head><body>
<script>var ytcfg = {"INNERTUBE_API_KEY":"` + testAPIKey + `","OTHER":"x"};</script>
<script>var ytInitialData = ` + initialData + `;</script>
</body></html>`
}

const initialDataWithSortMenu = `{"contents":{"itemSectionRenderer":{"header":{"sortFilterSubMenuRenderer":{"subMenuItems":[
	{"title":"Top","serviceEndpoint":{"continuationCommand":{"token":"tok-top"}}},
	{"title":"Newest","serviceEndpoint":{"continuationCommand":{"token":"tok-newest"}}}
]}}}}}`

func mutation(cid, text, likes string, replyLevel int) map[string]any {
	return map[string]any{
		"payload": map[string]any{
			"commentEntityPayload": map[string]any{
				"properties": map[string]any{
					"commentId":     cid,
					"content":       map[string]any{"content": text},
					"publishedTime": "1 day ago",
					"replyLevel":    replyLevel,
				},
				"author":  map[string]any{"displayName": "@" + cid},
				"toolbar": map[string]any{"likeCountNotliked": likes},
			},
		},
	}
}

func endpoint(token string) map[string]any {
	return map[string]any{"continuationCommand": map[string]any{"token": token}}
}

func nextBody(mutations []map[string]any, actionKey, target string, items []any) map[string]any {
	body := map[string]any{
		"frameworkUpdates": map[string]any{
			"entityBatchUpdate": map[string]any{"mutations": mutations},
		},
	}
	if actionKey != "" {
		body["onResponseReceivedEndpoints"] = []any{
			map[string]any{actionKey: map[string]any{"targetId": target, "continuationItems": items}},
		}
	}
	return body
}

// newYouTube serves a watch page and a scripted /youtubei/v1/next.
func newYouTube(t *testing.T, page string, responses map[string]map[string]any) (*httptest.Server, *[]string) {
	t.Helper()
	var tokens []string

	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, testAPIKey, r.URL.Query().Get("key"))

		var req nextRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "WEB", req.Context.Client.ClientName)
		tokens = append(tokens, req.Continuation)

		resp, ok := responses[req.Continuation]
		if !ok {
			http.Error(w, "unknown token", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokens
}

func collectAll(t *testing.T, c *Client) ([]comments.Entry, error) {
	t.Helper()
	var out []comments.Entry
	for e, err := range c.Comments(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func TestComments_CrawlsPagesAndReplies(t *testing.T) {
	responses := map[string]map[string]any{
		"tok-newest": nextBody(
			[]map[string]any{mutation("c1", "first", "12", 0), mutation("c2", "second", "", 0)},
			"reloadContinuationItemsCommand", "comments-section",
			[]any{
				map[string]any{"commentThreadRenderer": map[string]any{
					"replies": map[string]any{"commentRepliesRenderer": map[string]any{"contents": []any{
						map[string]any{"continuationItemRenderer": map[string]any{"continuationEndpoint": endpoint("tok-r1")}},
					}}},
				}},
				map[string]any{"commentThreadRenderer": map[string]any{}},
				map[string]any{"continuationItemRenderer": map[string]any{"continuationEndpoint": endpoint("tok-p2")}},
			},
		),
		"tok-r1": nextBody(
			[]map[string]any{mutation("c1.r1", "reply one", "3", 1)},
			"appendContinuationItemsAction", "comment-replies-item-c1",
			[]any{
				map[string]any{"commentViewModel": map[string]any{}},
				map[string]any{"continuationItemRenderer": map[string]any{
					"button": map[string]any{"buttonRenderer": map[string]any{"command": endpoint("tok-r1b")}},
				}},
			},
		),
		"tok-r1b": nextBody([]map[string]any{mutation("c1.r2", "reply two", "1.2K", 1)}, "", "", nil),
		"tok-p2":  nextBody([]map[string]any{mutation("c3", "third", "1,234", 0)}, "", "", nil),
	}
	srv, tokens := newYouTube(t, watchPageHTML(initialDataWithSortMenu), responses)

	c := NewClient(srv.URL, WithContinuationDelay(0))
	got, err := collectAll(t, c)
	require.NoError(t, err)

	require.Equal(t, []string{"tok-newest", "tok-r1", "tok-r1b", "tok-p2"}, *tokens)
	require.Len(t, got, 3)

	c1 := got[0].Comment
	require.Equal(t, "c1", c1.CID)
	require.Equal(t, 12, c1.Votes)
	require.Equal(t, "@c1", c1.Author)
	require.Len(t, c1.Replies, 2)
	require.Equal(t, "c1", c1.Replies[0].Comment.Parent)
	require.Equal(t, 3, c1.Replies[0].Comment.Votes)
	require.Equal(t, 1200, c1.Replies[1].Comment.Votes)

	require.Equal(t, "c2", got[1].Comment.CID)
	require.Equal(t, 0, got[1].Comment.Votes)
	require.Equal(t, "c3", got[2].Comment.CID)
	require.Equal(t, 1234, got[2].Comment.Votes)
}

func TestComments_WorksWithCollect(t *testing.T) {
	responses := map[string]map[string]any{
		"tok-newest": nextBody([]map[string]any{
			mutation("a", "low", "1", 0),
			mutation("b", "high", "5", 0),
		}, "", "", nil),
	}
	srv, _ := newYouTube(t, watchPageHTML(initialDataWithSortMenu), responses)

	res, err := comments.Collect(context.Background(), NewClient(srv.URL, WithContinuationDelay(0)), "dQw4w9WgXcQ", comments.Options{MinLikes: 2})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Equal(t, "b", res.Entries[0].Comment.CID)
}

func TestComments_FallsBackToContinuationEndpoint(t *testing.T) {
	data := `{"contents":[{"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"tok-any"}}}}]}`
	responses := map[string]map[string]any{
		"tok-any": nextBody([]map[string]any{mutation("x", "only", "2", 0)}, "", "", nil),
	}
	srv, _ := newYouTube(t, watchPageHTML(data), responses)

	got, err := collectAll(t, NewClient(srv.URL, WithContinuationDelay(0)))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestComments_CommentsDisabled(t *testing.T) {
	srv, _ := newYouTube(t, watchPageHTML(`{"contents":{}}`), nil)

	_, err := collectAll(t, NewClient(srv.URL, WithContinuationDelay(0)))
	require.ErrorIs(t, err, ErrCommentsDisabled)
}

func TestComments_NoAPIKey(t *testing.T) {
	srv, _ := newYouTube(t, `<html><head><title>Unavailable</title></head></html>`, nil)

	_, err := collectAll(t, NewClient(srv.URL, WithContinuationDelay(0)))
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestComments_StatusErrorIsNotRetried(t *testing.T) {
	srv, _ := newYouTube(t, watchPageHTML(initialDataWithSortMenu), map[string]map[string]any{})

	_, err := collectAll(t, NewClient(srv.URL, WithContinuationDelay(0), WithRetries(3, time.Millisecond)))
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusBadRequest, serr.StatusCode)
}

func TestClient_RetriesTemporaryStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, watchPageHTML(initialDataWithSortMenu))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, WithRetries(3, time.Millisecond))
	title, err := c.Title(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Equal(t, "Tom & Jerry", title)
	require.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, WithRetries(2, time.Millisecond)).Title(context.Background(), "dQw4w9WgXcQ")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	require.True(t, serr.Temporary())
	require.EqualValues(t, 3, calls.Load())
}

func TestClient_SendsLanguage(t *testing.T) {
	var pageLang, nextLang string
	var got nextRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		pageLang = r.Header.Get("Accept-Language")
		fmt.Fprint(w, watchPageHTML(initialDataWithSortMenu))
	})
	mux.HandleFunc("/youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
		nextLang = r.Header.Get("Accept-Language")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(nextBody(nil, "", "", nil))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tag, err := language.Parse("en-GB")
	require.NoError(t, err)

	_, err = collectAll(t, NewClient(srv.URL, WithContinuationDelay(0), WithLanguage(tag)))
	require.NoError(t, err)
	require.Equal(t, "en-GB,en;q=0.9", pageLang)
	require.Equal(t, pageLang, nextLang)
	require.Equal(t, "en", got.Context.Client.HL)
	require.Equal(t, "GB", got.Context.Client.GL)
}

func TestParseVoteCount(t *testing.T) {
	cases := map[string]int{
		"":      0,
		"0":     0,
		"7":     7,
		"1,234": 1234,
		"1.2K":  1200,
		"12k":   12000,
		"3M":    3000000,
		"1.5 M": 1500000,
		"abc":   0,
		"xK":    0,
		"12abc": 12,
	}
	for in, want := range cases {
		require.Equal(t, want, parseVoteCount(in), in)
	}
}

func TestPageTitle_Fallbacks(t *testing.T) {
	p, err := parsePage([]byte(`<html><head><title>Plain Title - YouTube</title></head>
<script>var x = {"INNERTUBE_API_KEY":"k"};</script></html>`))
	require.NoError(t, err)
	require.Equal(t, "Plain Title", p.Title)
	require.Equal(t, "k", p.APIKey)
	require.Empty(t, p.Continuation)

	p, err = parsePage([]byte(`<html><head><title>T - YouTube</title><meta itemprop="name" content="Itemprop Title"></head>
<script>{"INNERTUBE_API_KEY":"k"}</script></html>`))
	require.NoError(t, err)
	require.Equal(t, "Itemprop Title", p.Title)

	p, err = parsePage([]byte(`<html><head><title>T - YouTube</title></head><body>
<script>var ytInitialPlayerResponse = {"videoDetails":{"title":"Player Title"}};</script>
<script>{"INNERTUBE_API_KEY":"k"}</script></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "Player Title", p.Title)
}

func TestSearchKey_Deterministic(t *testing.T) {
	var data any
	require.NoError(t, json.Unmarshal([]byte(`{"b":{"k":2},"a":[{"k":1},{"x":{"k":3}}]}`), &data))
	require.Equal(t, []any{float64(1), float64(3), float64(2)}, searchKey(data, "k"))
}
