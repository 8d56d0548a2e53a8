// Package freshness decides whether cached articles of a source can be served without refetching it.
package freshness

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/domain"
)

// DefaultThreshold is the maximum age of the last scrape for cached articles to be served as is
const DefaultThreshold = 24 * time.Hour

// Store is the part of article storage the policy reads from
type Store interface {
	QueryRange(ctx context.Context, sourceURL string, start, end time.Time) ([]domain.Article, error)
}

// Decision is the result of a freshness check
type Decision struct {
	Existing     []domain.Article // stored articles within the lookback window, newest first
	NeedsRefetch bool
	LastScraped  time.Time // zero if nothing is stored
}

// Policy checks recency of the last scrape event, it never inspects content
type Policy struct {
	store     Store
	threshold time.Duration
	now       func() time.Time
}

// Option configures Policy
type Option func(*Policy)

// WithThreshold sets the freshness window
func WithThreshold(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.threshold = d
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// NewPolicy makes a freshness policy over the store
func NewPolicy(store Store, opts ...Option) *Policy {
	p := &Policy{store: store, threshold: DefaultThreshold, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide queries articles of the source published within [now - daysBack, now].
// Nothing stored means refetch with an empty set. Otherwise refetch is needed only if the newest
// scrape is older than the threshold, and stored articles are returned either way so the caller can merge.
func (p *Policy) Decide(ctx context.Context, sourceURL string, kind domain.SourceType, daysBack int) (Decision, error) {
	now := p.now()
	existing, err := p.store.QueryRange(ctx, sourceURL, now.AddDate(0, 0, -daysBack), now)
	if err != nil {
		return Decision{}, fmt.Errorf("query cached articles for %s: %w", sourceURL, err)
	}
	if len(existing) == 0 {
		lgr.Printf("[DEBUG] no cached %s articles for %s within %d days", kind, sourceURL, daysBack)
		return Decision{Existing: []domain.Article{}, NeedsRefetch: true}, nil
	}

	var last time.Time
	for _, a := range existing {
		if a.Scraped.After(last) {
			last = a.Scraped
		}
	}

	age := now.Sub(last)
	res := Decision{Existing: existing, LastScraped: last, NeedsRefetch: age > p.threshold}
	lgr.Printf("[DEBUG] %d cached %s articles for %s, last scraped %v ago, refetch: %v",
		len(existing), kind, sourceURL, age.Truncate(time.Minute), res.NeedsRefetch)
	return res, nil
}
