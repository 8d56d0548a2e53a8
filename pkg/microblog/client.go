// Package microblog implements a client of the microblog recent-search API.
package microblog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/config"
)

// ErrRateLimited is returned when the API still rejects the request after waiting for the rate limit reset
var ErrRateLimited = errors.New("rate limited")

// ErrNoToken is returned when the client has no bearer token configured
var ErrNoToken = errors.New("microblog bearer token is not configured")

// ProfileBase is the canonical prefix of handle source urls
const ProfileBase = "https://x.com/"

var urlRe = regexp.MustCompile(`http\S+`)

// Post is a single microblog post
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Client searches recent original posts of a handle.
// On 429 it waits until the reset time from x-rate-limit-reset and retries once.
type Client struct {
	endpoint   string
	token      string
	maxResults int
	client     *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// Option configures Client
type Option func(*Client)

// WithSleep replaces the function used to wait for a rate limit reset
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHTTPClient sets the http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient makes a search client from configuration
func NewClient(cfg config.MicroblogConfig, opts ...Option) *Client {
	res := &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		token:      cfg.BearerToken,
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
		sleep:      sleepCtx,
		now:        time.Now,
	}
	if res.maxResults == 0 {
		res.maxResults = 10
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// searchResponse is the recent search api response
type searchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
}

// RecentPosts returns recent posts of the handle, excluding reposts and replies.
// Posts with unparseable timestamps are returned with zero CreatedAt.
func (c *Client) RecentPosts(ctx context.Context, handle string) ([]Post, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("empty handle")
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("from:%s -is:retweet -is:reply", handle))
	params.Set("max_results", strconv.Itoa(c.maxResults))
	params.Set("tweet.fields", "created_at,text")
	reqURL := c.endpoint + "/tweets/search/recent?" + params.Encode()

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := c.resetWait(resp.Header.Get("x-rate-limit-reset"))
		_ = resp.Body.Close()
		lgr.Printf("[WARN] microblog rate limit hit for %s, waiting %v", handle, wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("wait for rate limit reset: %w", err)
		}
		if resp, err = c.get(ctx, reqURL); err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("search posts of %s: %w", handle, ErrRateLimited)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search posts of %s: unexpected status code %d: %s", handle, resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	posts := make([]Post, 0, len(sr.Data))
	for _, d := range sr.Data {
		p := Post{ID: d.ID, Text: d.Text}
		if ts, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
		posts = append(posts, p)
	}
	lgr.Printf("[DEBUG] received %d posts for %s", len(posts), handle)
	return posts, nil
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	return resp, nil
}

// resetWait returns time to wait until the reset epoch, at least one second.
// Missing or broken header means one minute from now.
func (c *Client) resetWait(header string) time.Duration {
	now := c.now().Unix()
	reset := now + 60
	if v, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64); err == nil {
		reset = v
	}
	return time.Duration(max(reset-now, 1)) * time.Second
}

// NormalizeHandle strips profile url prefixes, @ and slashes from a handle.
// Handles are case-insensitive, the result is lowercased.
func NormalizeHandle(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	for _, prefix := range []string{"https://", "http://", "www.", "x.com/", "twitter.com/", "mobile.twitter.com/"} {
		h = strings.TrimPrefix(h, prefix)
	}
	h = strings.TrimPrefix(h, "@")
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	return h
}

// SourceURL returns canonical source url of the handle
func SourceURL(handle string) string {
	return ProfileBase + NormalizeHandle(handle)
}

// PostURL returns permalink of the post
func PostURL(handle, id string) string {
	return SourceURL(handle) + "/status/" + id
}

// CleanText removes urls from the post text
func CleanText(text string) string {
	return strings.TrimSpace(urlRe.ReplaceAllString(text, ""))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
