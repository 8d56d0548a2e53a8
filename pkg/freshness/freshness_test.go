package freshness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/trendmind/pkg/domain"
)

type storeStub struct {
	articles   []domain.Article
	err        error
	start, end time.Time
}

func (s *storeStub) QueryRange(_ context.Context, _ string, start, end time.Time) ([]domain.Article, error) {
	s.start, s.end = start, end
	return s.articles, s.err
}

func TestPolicy_Decide(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cached := func(scrapedAgo ...time.Duration) []domain.Article {
		res := make([]domain.Article, len(scrapedAgo))
		for i, ago := range scrapedAgo {
			res[i] = domain.Article{SourceURL: "https://example.com/feed", Published: now.Add(-48 * time.Hour),
				Scraped: now.Add(-ago)}
		}
		return res
	}

	tests := []struct {
		name        string
		articles    []domain.Article
		wantRefetch bool
		wantCount   int
	}{
		{name: "nothing cached", articles: nil, wantRefetch: true, wantCount: 0},
		{name: "scraped 23h59m ago", articles: cached(23*time.Hour + 59*time.Minute), wantRefetch: false, wantCount: 1},
		{name: "scraped 24h01m ago", articles: cached(24*time.Hour + time.Minute), wantRefetch: true, wantCount: 1},
		{name: "newest scrape wins", articles: cached(72*time.Hour, time.Hour, 30*time.Hour), wantRefetch: false, wantCount: 3},
		{name: "all stale", articles: cached(72*time.Hour, 25*time.Hour), wantRefetch: true, wantCount: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storeStub{articles: tt.articles}
			p := NewPolicy(store, WithClock(clock))
			res, err := p.Decide(context.Background(), "https://example.com/feed", domain.SourceFeed, 7)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefetch, res.NeedsRefetch)
			assert.Len(t, res.Existing, tt.wantCount)
			assert.NotNil(t, res.Existing)
			assert.Equal(t, now.AddDate(0, 0, -7), store.start)
			assert.Equal(t, now, store.end)
		})
	}
}

func TestPolicy_DecideCustomThreshold(t *testing.T) {
	now := time.Now()
	store := &storeStub{articles: []domain.Article{{Scraped: now.Add(-2 * time.Hour)}}}

	res, err := NewPolicy(store, WithThreshold(time.Hour), WithClock(func() time.Time { return now })).
		Decide(context.Background(), "src", domain.SourceMicroblog, 1)
	require.NoError(t, err)
	assert.True(t, res.NeedsRefetch)
	assert.Equal(t, now.Add(-2*time.Hour), res.LastScraped)

	// non-positive threshold ignored
	p := NewPolicy(store, WithThreshold(0))
	assert.Equal(t, DefaultThreshold, p.threshold)
}

func TestPolicy_DecideStoreError(t *testing.T) {
	store := &storeStub{err: errors.New("connection refused")}
	_, err := NewPolicy(store).Decide(context.Background(), "https://example.com/feed", domain.SourceFeed, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
