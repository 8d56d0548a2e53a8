package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/time/rate"

	"github.com/umputun/trendmind/pkg/content"
	"github.com/umputun/trendmind/pkg/domain"
)

// NewsletterProvider handles newsletter feeds. Each new entry's own page is fetched for the full
// post text, the feed summary is used only when the page yields no text.
type NewsletterProvider struct {
	parser  FeedParser
	pages   Extractor
	limiter *rate.Limiter
}

// NewNewsletterProvider makes a newsletter provider, page fetches are spaced by interval
func NewNewsletterProvider(parser FeedParser, pages Extractor, interval time.Duration) *NewsletterProvider {
	return &NewsletterProvider{parser: parser, pages: pages, limiter: newLimiter(interval)}
}

// Kind returns newsletter source type
func (p *NewsletterProvider) Kind() domain.SourceType { return domain.SourceNewsletter }

// Normalize requires an absolute http(s) url
func (p *NewsletterProvider) Normalize(identifier string) (string, error) {
	return normalizeURL(identifier)
}

// Entries fetches newsletter feed entries
func (p *NewsletterProvider) Entries(ctx context.Context, sourceURL string) ([]Entry, error) {
	return parseEntries(ctx, p.parser, sourceURL)
}

// Materialize fetches the post page and builds the article
func (p *NewsletterProvider) Materialize(ctx context.Context, sourceURL string, e Entry) (domain.Article, error) {
	if e.Link == "" {
		return domain.Article{}, fmt.Errorf("entry has no link")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.Article{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	text, err := p.pages.Extract(ctx, e.Link)
	switch {
	case errors.Is(err, content.ErrNoContent):
		lgr.Printf("[DEBUG] no post text on %s, using feed summary", e.Link)
		text = content.StripHTML(e.Summary)
	case err != nil:
		return domain.Article{}, fmt.Errorf("fetch post %s: %w", e.Link, err)
	}

	return domain.Article{
		SourceType: domain.SourceNewsletter,
		SourceURL:  sourceURL,
		Title:      strings.TrimSpace(e.Title),
		Content:    text,
		Link:       e.Link,
		Published:  e.Published,
	}, nil
}
