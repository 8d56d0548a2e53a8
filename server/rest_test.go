package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/trendmind/pkg/analysis"
	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/server/mocks"
)

func serve(t *testing.T, srv *Server, method, target, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	res := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w.Code, res
}

func TestServer_healthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		store := &mocks.StoreMock{PingFunc: func(context.Context) error { return nil }}
		srv := New(Params{Config: testConfig(), Store: store, Version: "1.2.3"})

		code, res := serve(t, srv, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", res["status"])
		assert.Equal(t, "1.2.3", res["version"])
		assert.NotEmpty(t, res["timestamp"])
		assert.Len(t, store.PingCalls(), 1)
	})

	t.Run("database down", func(t *testing.T) {
		store := &mocks.StoreMock{PingFunc: func(context.Context) error { return errors.New("ping database: closed") }}
		srv := New(Params{Config: testConfig(), Store: store, Version: "1.2.3"})

		code, res := serve(t, srv, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", res["status"])
		assert.Equal(t, "ping database: closed", res["error"])
	})
}

func TestServer_collectHandler(t *testing.T) {
	collector := &mocks.CollectorMock{
		CollectFunc: func(_ context.Context, ids []string, daysBack int) domain.BatchResult {
			res := domain.BatchResult{RunID: "run-1", Success: true, Timestamp: time.Now()}
			for _, id := range ids {
				res.Sources = append(res.Sources, domain.SourceResult{SourceURL: id, NewCount: 1})
			}
			res.Summary = domain.BatchSummary{TotalSources: len(ids), SuccessfulSources: len(ids), NewArticles: len(ids)}
			return res
		},
	}
	srv := New(Params{Config: testConfig(), Collector: collector, DaysBack: 5})

	t.Run("success with default days", func(t *testing.T) {
		code, res := serve(t, srv, http.MethodPost, "/api/v1/collect",
			`{"sources": ["https://example.com/feed", "  ", "@karpathy"]}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "run-1", res["run_id"])
		assert.Equal(t, true, res["success"])
		summary := res["summary"].(map[string]any)
		assert.InDelta(t, 2, summary["total_sources"], 0.001)

		calls := collector.CollectCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"https://example.com/feed", "@karpathy"}, calls[0].Identifiers)
		assert.Equal(t, 5, calls[0].DaysBack)
	})

	t.Run("explicit days", func(t *testing.T) {
		code, _ := serve(t, srv, http.MethodPost, "/api/v1/collect", `{"sources": ["@a"], "days_back": 30}`)
		assert.Equal(t, http.StatusOK, code)
		calls := collector.CollectCalls()
		assert.Equal(t, 30, calls[len(calls)-1].DaysBack)
	})

	tests := []struct {
		name, body, errMsg string
	}{
		{"no sources", `{"sources": []}`, "at least one source must be provided"},
		{"blank sources", `{"sources": [" "]}`, "at least one source must be provided"},
		{"empty body", "", "at least one source must be provided"},
		{"days too small", `{"sources": ["@a"], "days_back": 0}`, "days_back must be between 1 and 365"},
		{"days too large", `{"sources": ["@a"], "days_back": 366}`, "days_back must be between 1 and 365"},
		{"bad json", `{"sources": `, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(collector.CollectCalls())
			code, res := serve(t, srv, http.MethodPost, "/api/v1/collect", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, res["error"], tt.errMsg)
			assert.Len(t, collector.CollectCalls(), before, "collector not called")
		})
	}
}

func TestServer_collectSingleHandler(t *testing.T) {
	newCollector := func(errMsg string) *mocks.CollectorMock {
		return &mocks.CollectorMock{
			CollectOneFunc: func(_ context.Context, id string, _ int) domain.SourceResult {
				return domain.SourceResult{SourceURL: id, SourceType: domain.SourceFeed, NewCount: 2, Error: errMsg}
			},
		}
	}

	t.Run("json body", func(t *testing.T) {
		collector := newCollector("")
		srv := New(Params{Config: testConfig(), Collector: collector})
		code, res := serve(t, srv, http.MethodPost, "/api/v1/collect/single",
			`{"source_url": " https://example.com/feed ", "days_back": 2}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, res["success"])
		result := res["result"].(map[string]any)
		assert.Equal(t, "https://example.com/feed", result["source_url"])
		assert.NotEmpty(t, res["timestamp"])

		calls := collector.CollectOneCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "https://example.com/feed", calls[0].Identifier)
		assert.Equal(t, 2, calls[0].DaysBack)
	})

	t.Run("query params", func(t *testing.T) {
		collector := newCollector("")
		srv := New(Params{Config: testConfig(), Collector: collector})
		code, _ := serve(t, srv, http.MethodPost, "/api/v1/collect/single?source_url=@sama&days_back=4", "")
		assert.Equal(t, http.StatusOK, code)
		calls := collector.CollectOneCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "@sama", calls[0].Identifier)
		assert.Equal(t, 4, calls[0].DaysBack)
	})

	t.Run("failed source", func(t *testing.T) {
		srv := New(Params{Config: testConfig(), Collector: newCollector("fetch feed: timeout")})
		code, res := serve(t, srv, http.MethodPost, "/api/v1/collect/single", `{"source_url": "https://example.com/feed"}`)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, res["success"])
		assert.Equal(t, "fetch feed: timeout", res["result"].(map[string]any)["error"])
	})

	tests := []struct {
		name, target, body, errMsg string
	}{
		{"missing source", "/api/v1/collect/single", `{}`, "source_url is required"},
		{"unsupported source", "/api/v1/collect/single", `{"source_url": "ftp://example.com"}`, "unsupported source"},
		{"bad days query", "/api/v1/collect/single?source_url=@a&days_back=abc", "", `invalid days_back: "abc"`},
		{"days out of range", "/api/v1/collect/single", `{"source_url": "@a", "days_back": 400}`, "days_back must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := newCollector("")
			srv := New(Params{Config: testConfig(), Collector: collector})
			code, res := serve(t, srv, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, res["error"], tt.errMsg)
			assert.Empty(t, collector.CollectOneCalls())
		})
	}
}

func TestServer_statsHandler(t *testing.T) {
	store := &mocks.StoreMock{
		CountsBySourceFunc: func(_ context.Context, daysBack int) ([]domain.SourceCount, error) {
			return []domain.SourceCount{{SourceURL: "https://a.example.com/feed", Count: 5}, {SourceURL: "@b", Count: 2}}, nil
		},
	}
	srv := New(Params{Config: testConfig(), Store: store})

	code, res := serve(t, srv, http.MethodGet, "/api/v1/stats?days_back=14", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, map[string]any{"https://a.example.com/feed": 5.0, "@b": 2.0}, res["stats"])
	assert.InDelta(t, 7, res["total_articles"], 0.001)
	assert.InDelta(t, 2, res["source_count"], 0.001)
	assert.InDelta(t, 14, res["days_back"], 0.001)
	require.Len(t, store.CountsBySourceCalls(), 1)
	assert.Equal(t, 14, store.CountsBySourceCalls()[0].DaysBack)

	t.Run("default days", func(t *testing.T) {
		code, res := serve(t, srv, http.MethodGet, "/api/v1/stats", "")
		assert.Equal(t, http.StatusOK, code)
		assert.InDelta(t, 7, res["days_back"], 0.001)
	})

	t.Run("bad days", func(t *testing.T) {
		code, _ := serve(t, srv, http.MethodGet, "/api/v1/stats?days_back=0", "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("store error", func(t *testing.T) {
		failing := &mocks.StoreMock{
			CountsBySourceFunc: func(context.Context, int) ([]domain.SourceCount, error) { return nil, errors.New("db locked") },
		}
		srv := New(Params{Config: testConfig(), Store: failing})
		code, res := serve(t, srv, http.MethodGet, "/api/v1/stats", "")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "can't load stats", res["error"])
	})
}

// handleCollector resolves @handles to profile urls and rejects anything else
func handleCollector() *mocks.CollectorMock {
	return &mocks.CollectorMock{CanonicalFunc: func(identifier string) (string, error) {
		if strings.HasPrefix(identifier, "@") {
			return "https://x.com/" + strings.ToLower(identifier[1:]), nil
		}
		return "", errors.New("unsupported source")
	}}
}

func TestServer_recentArticlesHandler(t *testing.T) {
	published := time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{ID: 1, SourceURL: "@a", SourceType: domain.SourceMicroblog, Content: strings.Repeat("x", 600), Published: published},
		{ID: 2, SourceURL: "@a", SourceType: domain.SourceMicroblog, Content: "short", Published: published.Add(-time.Hour)},
		{ID: 3, SourceURL: "@b", SourceType: domain.SourceMicroblog, Content: "third"},
	}

	t.Run("given sources", func(t *testing.T) {
		store := &mocks.StoreMock{
			QueryManyRecentFunc: func(_ context.Context, urls []string, daysBack int) ([]domain.Article, error) {
				return articles, nil
			},
		}
		srv := New(Params{Config: testConfig(), Store: store, Collector: handleCollector()})
		code, res := serve(t, srv, http.MethodGet, "/api/v1/recent-articles?sources=@a,@B&limit=2&days_back=5", "")
		assert.Equal(t, http.StatusOK, code)
		assert.InDelta(t, 2, res["count"], 0.001)
		assert.InDelta(t, 3, res["total_available"], 0.001)

		items := res["articles"].([]any)
		require.Len(t, items, 2)
		first := items[0].(map[string]any)
		assert.Equal(t, strings.Repeat("x", 500)+"...", first["content"])
		assert.Equal(t, "2025-10-14T10:00:00Z", first["published_date"])
		assert.Equal(t, "short", items[1].(map[string]any)["content"])

		calls := store.QueryManyRecentCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"https://x.com/a", "https://x.com/b"}, calls[0].SourceURLs, "handles resolved to stored urls")
		assert.Equal(t, 5, calls[0].DaysBack)
		assert.Empty(t, store.CountsBySourceCalls())
	})

	t.Run("top sources capped", func(t *testing.T) {
		var counts []domain.SourceCount
		for i := range 25 {
			counts = append(counts, domain.SourceCount{SourceURL: fmt.Sprintf("@s%d", i), Count: 25 - i})
		}
		store := &mocks.StoreMock{
			CountsBySourceFunc: func(context.Context, int) ([]domain.SourceCount, error) { return counts, nil },
			QueryManyRecentFunc: func(context.Context, []string, int) ([]domain.Article, error) {
				return articles[2:], nil
			},
		}
		srv := New(Params{Config: testConfig(), Store: store})
		code, res := serve(t, srv, http.MethodGet, "/api/v1/recent-articles", "")
		assert.Equal(t, http.StatusOK, code)
		assert.InDelta(t, 1, res["count"], 0.001)
		item := res["articles"].([]any)[0].(map[string]any)
		assert.Nil(t, item["published_date"], "zero time is omitted as null")

		require.Len(t, store.CountsBySourceCalls(), 1)
		assert.Equal(t, 3, store.CountsBySourceCalls()[0].DaysBack, "default lookback")
		calls := store.QueryManyRecentCalls()
		require.Len(t, calls, 1)
		assert.Len(t, calls[0].SourceURLs, 20)
		assert.Equal(t, "@s0", calls[0].SourceURLs[0])
	})

	t.Run("no sources", func(t *testing.T) {
		store := &mocks.StoreMock{
			CountsBySourceFunc: func(context.Context, int) ([]domain.SourceCount, error) { return nil, nil },
		}
		srv := New(Params{Config: testConfig(), Store: store})
		code, res := serve(t, srv, http.MethodGet, "/api/v1/recent-articles", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, []any{}, res["articles"])
		assert.InDelta(t, 0, res["count"], 0.001)
		assert.Empty(t, store.QueryManyRecentCalls())
	})

	t.Run("store error", func(t *testing.T) {
		store := &mocks.StoreMock{
			QueryManyRecentFunc: func(context.Context, []string, int) ([]domain.Article, error) {
				return nil, errors.New("boom")
			},
		}
		srv := New(Params{Config: testConfig(), Store: store, Collector: handleCollector()})
		code, res := serve(t, srv, http.MethodGet, "/api/v1/recent-articles?sources=@a", "")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "can't load articles", res["error"])
	})

	for _, target := range []string{"?limit=0", "?limit=101", "?limit=abc", "?days_back=0", "?days_back=400"} {
		t.Run("invalid "+target, func(t *testing.T) {
			store := &mocks.StoreMock{}
			srv := New(Params{Config: testConfig(), Store: store})
			code, _ := serve(t, srv, http.MethodGet, "/api/v1/recent-articles"+target, "")
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}
}

func TestServer_analyzeHandler(t *testing.T) {
	result := domain.Analysis{
		ArticleCount: 3,
		Clusters: []domain.ClusterSummary{{TopicName: "Robotics", ArticleCount: 3, Summary: "robots",
			Sources: []string{"@a"}, Outcome: domain.OK()}},
		Overview: "overview",
		Outcome:  domain.Degraded("overview failed"),
	}

	t.Run("success", func(t *testing.T) {
		analyzer := &mocks.AnalyzerMock{
			AnalyzeFunc: func(context.Context, analysis.Request) (domain.Analysis, error) { return result, nil },
		}
		srv := New(Params{Config: testConfig(), Analyzer: analyzer, Collector: handleCollector(), DaysBack: 7})
		code, res := serve(t, srv, http.MethodPost, "/api/v1/analyze",
			`{"sources": ["@a", ""], "max_clusters": 5, "limit": 100, "filter": true}`)
		assert.Equal(t, http.StatusOK, code)
		assert.InDelta(t, 3, res["article_count"], 0.001)
		assert.Equal(t, "overview", res["overview"])
		assert.Equal(t, map[string]any{"status": "degraded", "reason": "overview failed"}, res["outcome"])
		require.Len(t, res["clusters"], 1)

		calls := analyzer.AnalyzeCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, analysis.Request{Sources: []string{"https://x.com/a"}, DaysBack: 7, MaxClusters: 5, Limit: 100,
			Filter: true}, calls[0].Req)
	})

	t.Run("handles resolved to stored urls", func(t *testing.T) {
		analyzer := &mocks.AnalyzerMock{
			AnalyzeFunc: func(context.Context, analysis.Request) (domain.Analysis, error) { return result, nil },
		}
		collector := handleCollector()
		srv := New(Params{Config: testConfig(), Analyzer: analyzer, Collector: collector, DaysBack: 7})
		code, _ := serve(t, srv, http.MethodPost, "/api/v1/analyze", `{"sources": ["@Alice", " not a source "]}`)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, analyzer.AnalyzeCalls(), 1)
		assert.Equal(t, []string{"https://x.com/alice", "not a source"}, analyzer.AnalyzeCalls()[0].Req.Sources,
			"unresolved identifiers kept as is")
		assert.Len(t, collector.CanonicalCalls(), 2)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		analyzer := &mocks.AnalyzerMock{
			AnalyzeFunc: func(context.Context, analysis.Request) (domain.Analysis, error) { return domain.Analysis{}, nil },
		}
		srv := New(Params{Config: testConfig(), Analyzer: analyzer})
		code, _ := serve(t, srv, http.MethodPost, "/api/v1/analyze", "")
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, analyzer.AnalyzeCalls(), 1)
		assert.Equal(t, analysis.Request{Sources: []string{}, DaysBack: 7}, analyzer.AnalyzeCalls()[0].Req)
	})

	t.Run("analyzer error", func(t *testing.T) {
		analyzer := &mocks.AnalyzerMock{
			AnalyzeFunc: func(context.Context, analysis.Request) (domain.Analysis, error) {
				return domain.Analysis{}, errors.New("load recent articles: db closed")
			},
		}
		srv := New(Params{Config: testConfig(), Analyzer: analyzer})
		code, res := serve(t, srv, http.MethodPost, "/api/v1/analyze", `{}`)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "analysis failed", res["error"])
	})

	tests := []struct {
		name, body, errMsg string
	}{
		{"clusters too many", `{"max_clusters": 21}`, "max_clusters must be between 0 and 20"},
		{"negative clusters", `{"max_clusters": -1}`, "max_clusters must be between 0 and 20"},
		{"limit too large", `{"limit": 1001}`, "limit must be between 0 and 1000"},
		{"bad days", `{"days_back": 0}`, "days_back must be between 1 and 365"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &mocks.AnalyzerMock{}
			srv := New(Params{Config: testConfig(), Analyzer: analyzer})
			code, res := serve(t, srv, http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.errMsg, res["error"])
			assert.Empty(t, analyzer.AnalyzeCalls())
		})
	}
}
