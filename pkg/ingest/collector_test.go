package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/trendmind/pkg/domain"
)

type ingestorStub struct {
	calls []string
	fn    func(identifier string) (domain.IngestResult, error)
}

func (s *ingestorStub) Ingest(_ context.Context, identifier string, _ int) (domain.IngestResult, error) {
	s.calls = append(s.calls, identifier)
	return s.fn(identifier)
}

func (s *ingestorStub) Canonical(identifier string) (string, error) {
	return "canonical:" + strings.TrimSpace(identifier), nil
}

func TestCollector_Collect(t *testing.T) {
	articles := func(n int) []domain.Article {
		res := make([]domain.Article, n)
		for i := range res {
			res[i] = domain.Article{Title: "t", Published: time.Now().Add(-time.Duration(i) * time.Hour)}
		}
		return res
	}

	feeds := &ingestorStub{fn: func(id string) (domain.IngestResult, error) {
		if id == "https://broken.example.com/rss" {
			return domain.IngestResult{SourceURL: id, Articles: articles(1), CachedCount: 1}, errors.New("fetch failed")
		}
		return domain.IngestResult{SourceURL: id, Articles: articles(3), NewCount: 2, CachedCount: 1,
			Errors: []string{"entry x: bad date"}}, nil
	}}
	posts := &ingestorStub{fn: func(id string) (domain.IngestResult, error) {
		return domain.IngestResult{SourceURL: "https://x.com/karpathy", Articles: articles(2), CachedCount: 2, FromCache: true}, nil
	}}

	c := NewCollector(map[domain.SourceType]SourceIngestor{
		domain.SourceFeed:      feeds,
		domain.SourceMicroblog: posts,
	})
	res := c.Collect(context.Background(), []string{
		"https://openai.com/news/rss.xml",
		"@karpathy",
		"https://broken.example.com/rss",
		"nonsense",
		"https://someone.substack.com/feed", // no newsletter ingestor configured
	}, 7)

	_, err := uuid.Parse(res.RunID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Timestamp.IsZero())
	require.Len(t, res.Sources, 5)

	assert.Equal(t, []string{"https://openai.com/news/rss.xml", "https://broken.example.com/rss"}, feeds.calls)
	assert.Equal(t, []string{"@karpathy"}, posts.calls)

	assert.Equal(t, domain.SourceFeed, res.Sources[0].SourceType)
	assert.Empty(t, res.Sources[0].Error)
	assert.Equal(t, []string{"entry x: bad date"}, res.Sources[0].Errors)

	assert.Equal(t, "https://x.com/karpathy", res.Sources[1].SourceURL)
	assert.Equal(t, domain.SourceMicroblog, res.Sources[1].SourceType)

	assert.Equal(t, "fetch failed", res.Sources[2].Error)
	assert.Len(t, res.Sources[2].Articles, 1)

	assert.Contains(t, res.Sources[3].Error, "unsupported source")
	assert.Equal(t, "nonsense", res.Sources[3].SourceURL)
	assert.NotNil(t, res.Sources[3].Articles)

	assert.Equal(t, domain.SourceNewsletter, res.Sources[4].SourceType)
	assert.Contains(t, res.Sources[4].Error, "no ingestor for newsletter")

	assert.Equal(t, domain.BatchSummary{
		TotalSources:      5,
		SuccessfulSources: 2,
		FailedSources:     3,
		TotalArticles:     3 + 2 + 1,
		NewArticles:       2,
		CachedArticles:    1 + 2 + 1,
	}, res.Summary)
}

func TestCollector_CollectCancelled(t *testing.T) {
	feeds := &ingestorStub{fn: func(id string) (domain.IngestResult, error) {
		return domain.IngestResult{SourceURL: id}, nil
	}}
	c := NewCollector(map[domain.SourceType]SourceIngestor{domain.SourceFeed: feeds})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Collect(ctx, []string{"https://a.com/rss", "https://b.com/rss"}, 7)
	assert.Empty(t, feeds.calls)
	assert.Equal(t, 2, res.Summary.FailedSources)
	assert.Contains(t, res.Sources[0].Error, "not processed")
}

func TestCollector_Empty(t *testing.T) {
	res := NewCollector(nil).Collect(context.Background(), nil, 7)
	assert.True(t, res.Success)
	assert.Empty(t, res.Sources)
	assert.Equal(t, domain.BatchSummary{}, res.Summary)
}

func TestCollector_Canonical(t *testing.T) {
	c := NewCollector(map[domain.SourceType]SourceIngestor{
		domain.SourceMicroblog: NewIngestor(NewMicroblogProvider(&searcherStub{}), nil, nil),
		domain.SourceFeed:      &ingestorStub{},
	})

	for _, id := range []string{"@alice", " @Alice ", "https://x.com/alice", "twitter.com/ALICE/"} {
		src, err := c.Canonical(id)
		require.NoError(t, err, id)
		assert.Equal(t, "https://x.com/alice", src, id)
	}

	src, err := c.Canonical("https://blog.example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, "canonical:https://blog.example.com/rss", src)

	_, err = c.Canonical("nonsense")
	require.ErrorIs(t, err, ErrUnsupportedSource)
	_, err = c.Canonical("https://foo.substack.com/feed")
	require.ErrorIs(t, err, ErrUnsupportedSource, "no newsletter ingestor")

	assert.Equal(t, []string{"https://x.com/alice", "https://x.com/bob", "nonsense"},
		c.CanonicalSources([]string{"@alice", "x.com/Bob", "nonsense"}))
	assert.Empty(t, c.CanonicalSources(nil))
}
