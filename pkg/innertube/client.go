// Package innertube scrapes YouTube comments through the web client's
// InnerTube endpoints.
package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
)

const (
	DefaultBaseURL           = "https://www.youtube.com"
	DefaultContinuationDelay = 100 * time.Millisecond
	DefaultRetries           = 3

	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	clientName    = "WEB"
	clientVersion = "2.20231219.04.00"
	watchPath     = "/watch"
	nextPath      = "/youtubei/v1/next"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("innertube: %s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	retries     uint64
	backoffBase time.Duration
	lang        language.Tag
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithContinuationDelay spaces continuation requests at least d apart.
// Zero disables pacing.
func WithContinuationDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetries sets how many times a transient failure is retried, and the
// base of the Fibonacci backoff between attempts.
func WithRetries(n uint64, base time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if base > 0 {
			c.backoffBase = base
		}
	}
}

// WithLanguage sets the interface language requested from YouTube. Vote
// counts like "1.2K" are parsed in English notation, so other languages may
// lose abbreviated counts.
func WithLanguage(tag language.Tag) Option {
	return func(c *Client) { c.lang = tag }
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:     rate.NewLimiter(rate.Every(DefaultContinuationDelay), 1),
		retries:     DefaultRetries,
		backoffBase: 500 * time.Millisecond,
		lang:        language.English,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends the request built by newReq, retrying network errors and
// temporary statuses, and returns the response body.
func (c *Client) do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := newReq(ctx)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.Warn("innertube: request failed, retrying", "url", req.URL.String(), "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			serr := &StatusError{
				Method:     req.Method,
				URL:        req.URL.Redacted(),
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if serr.Temporary() {
				slog.Warn("innertube: temporary status, retrying", "url", serr.URL, "status", serr.StatusCode)
				return retry.RetryableError(serr)
			}
			return serr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getPage(ctx context.Context, videoID string) ([]byte, error) {
	u := c.baseURL + watchPath + "?v=" + videoID
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", c.lang.AcceptLanguage())
		return req, nil
	})
}

type nextRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
			HL            string `json:"hl,omitempty"`
			GL            string `json:"gl,omitempty"`
		} `json:"client"`
	} `json:"context"`
	Continuation string `json:"continuation"`
}

func (c *Client) postNext(ctx context.Context, apiKey, token string) ([]byte, error) {
	var payload nextRequest
	payload.Context.Client.ClientName = clientName
	payload.Context.Client.ClientVersion = clientVersion
	payload.Context.Client.HL = c.lang.HL()
	payload.Context.Client.GL = c.lang.GL()
	payload.Continuation = token

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + nextPath + "?key=" + apiKey
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", c.lang.AcceptLanguage())
		return req, nil
	})
}
