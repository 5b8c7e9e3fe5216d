package innertube

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoAPIKey         = errors.New("could not extract YouTube data, the video may be unavailable")
	ErrCommentsDisabled = errors.New("could not find the comments section, comments may be disabled")
)

var (
	apiKeyRe      = regexp.MustCompile(`"INNERTUBE_API_KEY":"([^"]+)"`)
	initialDataRe = regexp.MustCompile(`var ytInitialData = ({.+?});`)
)

// Page holds what the crawler needs from a watch page.
type Page struct {
	APIKey       string
	Title        string
	Continuation string
}

// parsePage extracts the API key, title and first comments continuation.
// A missing continuation is not an error here; the caller decides.
func parsePage(html []byte) (*Page, error) {
	m := apiKeyRe.FindSubmatch(html)
	if m == nil {
		return nil, ErrNoAPIKey
	}
	p := &Page{APIKey: string(m[1])}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	p.Title = pageTitle(doc)

	if data := scriptJSON(doc, "var ytInitialData = "); data != nil {
		p.Continuation = initialContinuation(data)
	} else if m := initialDataRe.FindSubmatch(html); m != nil {
		var data any
		if json.Unmarshal(m[1], &data) == nil {
			p.Continuation = initialContinuation(data)
		}
	}
	return p, nil
}

// pageTitle tries the meta tags, then the player response, then <title>.
func pageTitle(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="og:title"]`,
		`meta[itemprop="name"]`,
		`meta[name="title"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	if data, ok := scriptJSON(doc, "var ytInitialPlayerResponse = ").(map[string]any); ok {
		if details, ok := data["videoDetails"].(map[string]any); ok {
			if t, ok := details["title"].(string); ok && strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t)
			}
		}
	}

	t := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(strings.TrimSuffix(t, " - YouTube"))
}

// scriptJSON finds an inline script starting with prefix and decodes the
// JSON value that follows it.
func scriptJSON(doc *goquery.Document, prefix string) any {
	var out any
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, prefix) {
			return true
		}
		dec := json.NewDecoder(strings.NewReader(strings.TrimPrefix(text, prefix)))
		var v any
		if err := dec.Decode(&v); err != nil {
			return true
		}
		out = v
		return false
	})
	return out
}

// initialContinuation prefers the second sort menu entry ("Newest first"),
// then the first, then any continuation endpoint with a token.
func initialContinuation(data any) string {
	for _, menu := range searchKey(data, "sortFilterSubMenuRenderer") {
		m, _ := menu.(map[string]any)
		items, _ := m["subMenuItems"].([]any)
		for _, idx := range []int{1, 0} {
			if idx >= len(items) {
				continue
			}
			item, _ := items[idx].(map[string]any)
			if tok := tokenOf(item["serviceEndpoint"]); tok != "" {
				return tok
			}
		}
	}
	for _, ep := range searchKey(data, "continuationEndpoint") {
		if tok := tokenOf(ep); tok != "" {
			return tok
		}
	}
	return ""
}

// tokenOf returns continuationCommand.token of an endpoint, or "".
func tokenOf(endpoint any) string {
	m, ok := endpoint.(map[string]any)
	if !ok {
		return ""
	}
	cmd, ok := m["continuationCommand"].(map[string]any)
	if !ok {
		return ""
	}
	tok, _ := cmd["token"].(string)
	return tok
}

// searchKey returns every value stored under key anywhere in v, depth
// first. Matches are not searched further. Object keys are visited in
// sorted order so results are deterministic.
func searchKey(v any, key string) []any {
	var out []any
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case []any:
			for _, e := range x {
				walk(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if k == key {
					out = append(out, x[k])
					continue
				}
				walk(x[k])
			}
		}
	}
	walk(v)
	return out
}
