package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/umputun/trendmind/pkg/content"
	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/feed"
)

// FeedParser fetches and parses a feed
type FeedParser interface {
	Parse(ctx context.Context, url string) (*feed.Feed, error)
}

// Extractor returns readable text of a page
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// FeedProvider handles RSS/Atom feeds and blogs. With an extractor set, article text is downloaded
// from the entry link, otherwise the feed content (or summary) is used.
type FeedProvider struct {
	parser    FeedParser
	extractor Extractor // nil disables full-text extraction
	limiter   *rate.Limiter
}

// NewFeedProvider makes a feed provider. Page fetches are spaced by interval.
func NewFeedProvider(parser FeedParser, extractor Extractor, interval time.Duration) *FeedProvider {
	return &FeedProvider{parser: parser, extractor: extractor, limiter: newLimiter(interval)}
}

// Kind returns feed source type
func (p *FeedProvider) Kind() domain.SourceType { return domain.SourceFeed }

// Normalize requires an absolute http(s) url
func (p *FeedProvider) Normalize(identifier string) (string, error) {
	return normalizeURL(identifier)
}

// Entries fetches feed entries
func (p *FeedProvider) Entries(ctx context.Context, sourceURL string) ([]Entry, error) {
	return parseEntries(ctx, p.parser, sourceURL)
}

// Materialize builds the article, extracting full text from the entry link if extraction is enabled
func (p *FeedProvider) Materialize(ctx context.Context, sourceURL string, e Entry) (domain.Article, error) {
	article := domain.Article{
		SourceType: domain.SourceFeed,
		SourceURL:  sourceURL,
		Title:      strings.TrimSpace(e.Title),
		Link:       e.Link,
		Published:  e.Published,
	}

	if p.extractor == nil {
		article.Content = feedText(e)
		return article, nil
	}

	if e.Link == "" {
		return domain.Article{}, fmt.Errorf("entry has no link to extract from")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.Article{}, fmt.Errorf("wait for rate limiter: %w", err)
	}
	text, err := p.extractor.Extract(ctx, e.Link)
	if err != nil {
		return domain.Article{}, fmt.Errorf("extract %s: %w", e.Link, err)
	}
	article.Content = text
	return article, nil
}

// parseEntries converts feed entries to raw entries
func parseEntries(ctx context.Context, parser FeedParser, sourceURL string) ([]Entry, error) {
	f, err := parser.Parse(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	res := make([]Entry, 0, len(f.Entries))
	for _, fe := range f.Entries {
		res = append(res, Entry{
			ID:        fe.GUID,
			Title:     fe.Title,
			Link:      fe.Link,
			Summary:   fe.Description,
			Content:   fe.Content,
			Published: fe.Published,
			RawDate:   fe.RawDate,
		})
	}
	return res, nil
}

// feedText returns plain text of the entry content, falling back to its summary
func feedText(e Entry) string {
	if txt := content.StripHTML(e.Content); txt != "" {
		return txt
	}
	return content.StripHTML(e.Summary)
}

// normalizeURL trims the identifier and checks it's an absolute http(s) url
func normalizeURL(identifier string) (string, error) {
	s := strings.TrimSpace(identifier)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an http(s) url", ErrUnsupportedSource, identifier)
	}
	return s, nil
}

// newLimiter allows one event per interval, zero interval means no limit
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
