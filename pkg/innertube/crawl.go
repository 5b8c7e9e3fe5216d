package innertube

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"thirdcoast.systems/ytcomments/internal/comments"
)

// Target IDs of actions that carry top-level comment pages.
var sectionTargets = []string{
	"comments-section",
	"engagement-panel-comments-section",
	"shorts-engagement-panel-comments-section",
}

const repliesTargetPrefix = "comment-replies-item"

type nextResponse struct {
	FrameworkUpdates struct {
		EntityBatchUpdate struct {
			Mutations []struct {
				Payload struct {
					CommentEntityPayload *commentEntity `json:"commentEntityPayload"`
				} `json:"payload"`
			} `json:"mutations"`
		} `json:"entityBatchUpdate"`
	} `json:"frameworkUpdates"`
}

type commentEntity struct {
	Properties struct {
		CommentID string `json:"commentId"`
		Content   struct {
			Content string `json:"content"`
		} `json:"content"`
		PublishedTime string `json:"publishedTime"`
		ReplyLevel    int    `json:"replyLevel"`
	} `json:"properties"`
	Author struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Toolbar struct {
		LikeCountNotliked string `json:"likeCountNotliked"`
	} `json:"toolbar"`
}

// Title fetches the watch page and returns the video title.
func (c *Client) Title(ctx context.Context, watchURL string) (string, error) {
	html, err := c.getPage(ctx, videoIDFromURL(watchURL))
	if err != nil {
		return "", err
	}
	p, err := parsePage(html)
	if err != nil {
		return "", err
	}
	return p.Title, nil
}

// Comments crawls every comment page and reply thread of the video.
// Top-level comments are yielded once all their replies have been fetched.
func (c *Client) Comments(ctx context.Context, watchURL string) iter.Seq2[comments.Entry, error] {
	return func(yield func(comments.Entry, error) bool) {
		videoID := videoIDFromURL(watchURL)

		html, err := c.getPage(ctx, videoID)
		if err != nil {
			yield(comments.Entry{}, fmt.Errorf("fetch video page: %w", err))
			return
		}
		page, err := parsePage(html)
		if err != nil {
			yield(comments.Entry{}, err)
			return
		}
		if page.Continuation == "" {
			yield(comments.Entry{}, ErrCommentsDisabled)
			return
		}

		slog.Debug("innertube: crawling comments", "video_id", videoID, "title", page.Title)

		cr := &crawler{
			client: c,
			apiKey: page.APIKey,
			queue:  []continuation{{token: page.Continuation}},
			byID:   map[string]*comments.Comment{},
			yield:  yield,
		}
		cr.run(ctx)
	}
}

type continuation struct {
	token   string
	replies bool
}

type crawler struct {
	client *Client
	apiKey string

	// queue is popped from the end. Page continuations go to the front,
	// "more replies" buttons to the back.
	queue        []continuation
	pendingReply int

	pending []*comments.Comment
	byID    map[string]*comments.Comment

	yield   func(comments.Entry, error) bool
	stopped bool
}

func (cr *crawler) run(ctx context.Context) {
	for len(cr.queue) > 0 && !cr.stopped {
		next := cr.queue[len(cr.queue)-1]
		cr.queue = cr.queue[:len(cr.queue)-1]
		if next.replies {
			cr.pendingReply--
		}

		if err := cr.client.limiter.Wait(ctx); err != nil {
			cr.fail(err)
			return
		}
		body, err := cr.client.postNext(ctx, cr.apiKey, next.token)
		if err != nil {
			cr.fail(fmt.Errorf("fetch comments: %w", err))
			return
		}
		if err := cr.handle(body); err != nil {
			cr.fail(err)
			return
		}

		// Every reply thread of the buffered comments has been fetched.
		if cr.pendingReply == 0 {
			cr.flush()
		}
	}
	cr.flush()
}

func (cr *crawler) handle(body []byte) error {
	var resp nextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode comments response: %w", err)
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("decode comments response: %w", err)
	}

	for _, m := range resp.FrameworkUpdates.EntityBatchUpdate.Mutations {
		ce := m.Payload.CommentEntityPayload
		if ce == nil || ce.Properties.CommentID == "" || ce.Properties.Content.Content == "" {
			continue
		}
		cr.add(ce)
	}

	actions := searchKey(data, "reloadContinuationItemsCommand")
	actions = append(actions, searchKey(data, "appendContinuationItemsAction")...)
	for _, a := range actions {
		cr.enqueue(a)
	}
	return nil
}

func (cr *crawler) add(ce *commentEntity) {
	c := &comments.Comment{
		Time:   ce.Properties.PublishedTime,
		Author: ce.Author.DisplayName,
		Votes:  parseVoteCount(ce.Toolbar.LikeCountNotliked),
		CID:    ce.Properties.CommentID,
		Text:   ce.Properties.Content.Content,
	}

	if ce.Properties.ReplyLevel == 0 {
		cr.pending = append(cr.pending, c)
		cr.byID[c.CID] = c
		return
	}

	c.Parent = comments.ParentFromID(c.CID)
	if parent, ok := cr.byID[c.Parent]; ok {
		parent.Replies = append(parent.Replies, comments.Structured(c))
		return
	}

	// Parent already yielded or never seen.
	cr.flush()
	cr.emit(comments.Structured(c))
}

func (cr *crawler) enqueue(action any) {
	a, ok := action.(map[string]any)
	if !ok {
		return
	}
	targetID, _ := a["targetId"].(string)
	items, _ := a["continuationItems"].([]any)

	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}

		switch {
		case slices.Contains(sectionTargets, targetID):
			_, thread := item["commentThreadRenderer"]
			cr.unshift(endpointTokens(item), thread)

		case strings.HasPrefix(targetID, repliesTargetPrefix):
			if _, ok := item["continuationItemRenderer"]; ok {
				for _, btn := range searchKey(item, "buttonRenderer") {
					b, _ := btn.(map[string]any)
					if tok := tokenOf(b["command"]); tok != "" {
						cr.queue = append(cr.queue, continuation{token: tok, replies: true})
						cr.pendingReply++
					}
				}
				continue
			}
			cr.unshift(endpointTokens(item), true)
		}
	}
}

func (cr *crawler) unshift(tokens []string, replies bool) {
	if len(tokens) == 0 {
		return
	}
	group := make([]continuation, 0, len(tokens)+len(cr.queue))
	for _, t := range tokens {
		group = append(group, continuation{token: t, replies: replies})
	}
	cr.queue = append(group, cr.queue...)
	if replies {
		cr.pendingReply += len(tokens)
	}
}

func (cr *crawler) flush() {
	for len(cr.pending) > 0 && !cr.stopped {
		c := cr.pending[0]
		cr.pending = cr.pending[1:]
		delete(cr.byID, c.CID)
		cr.emit(comments.Structured(c))
	}
}

func (cr *crawler) emit(e comments.Entry) {
	if cr.stopped {
		return
	}
	if !cr.yield(e, nil) {
		cr.stopped = true
	}
}

func (cr *crawler) fail(err error) {
	if cr.stopped {
		return
	}
	cr.stopped = true
	cr.yield(comments.Entry{}, err)
}

func endpointTokens(item any) []string {
	var out []string
	for _, ep := range searchKey(item, "continuationEndpoint") {
		if tok := tokenOf(ep); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// parseVoteCount reads YouTube's abbreviated like counts ("1.2K", "3M",
// "1,234"). Unparseable text is 0.
func parseVoteCount(text string) int {
	s := strings.ToLower(strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(text))
	if s == "" {
		return 0
	}

	mult := 0.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult = 1e3
	case strings.HasSuffix(s, "m"):
		mult = 1e6
	}
	if mult > 0 {
		f, err := strconv.ParseFloat(s[:len(s)-1], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(math.Round(f * mult))
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func videoIDFromURL(watchURL string) string {
	u, err := url.Parse(watchURL)
	if err != nil {
		return watchURL
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return watchURL
}
