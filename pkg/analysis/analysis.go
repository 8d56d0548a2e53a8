// Package analysis runs the clustering pipeline over stored articles:
// load, optional relevance filter, cluster, summarize each cluster, overview.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/domain"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store
//go:generate moq -out mocks/assigner.go -pkg mocks -skip-ensure -fmt goimports . Assigner
//go:generate moq -out mocks/summarizer.go -pkg mocks -skip-ensure -fmt goimports . Summarizer
//go:generate moq -out mocks/overview.go -pkg mocks -skip-ensure -fmt goimports . OverviewGenerator
//go:generate moq -out mocks/filter.go -pkg mocks -skip-ensure -fmt goimports . Filter

// Store provides stored articles
type Store interface {
	QueryManyRecent(ctx context.Context, sourceURLs []string, daysBack int) ([]domain.Article, error)
	QueryRecent(ctx context.Context, daysBack, limit int) ([]domain.Article, error)
}

// Assigner partitions articles into clusters
type Assigner interface {
	Assign(ctx context.Context, articles []domain.Article, maxClusters int) ([]domain.Cluster, domain.Outcome)
}

// Summarizer summarizes a single cluster
type Summarizer interface {
	Summarize(ctx context.Context, cluster domain.Cluster) domain.ClusterSummary
}

// OverviewGenerator synthesizes cluster summaries into one text
type OverviewGenerator interface {
	Generate(ctx context.Context, summaries []domain.ClusterSummary) (string, domain.Outcome)
}

// Filter keeps relevant articles
type Filter interface {
	Filter(ctx context.Context, articles []domain.Article) ([]domain.Article, domain.Outcome)
}

// Request describes what to analyze. Empty Sources means all stored sources.
type Request struct {
	Sources     []string
	DaysBack    int
	MaxClusters int
	Limit       int // max articles loaded when Sources is empty, 0 for no limit
	Filter      bool
}

// Analyzer wires the pipeline steps together
type Analyzer struct {
	store      Store
	assigner   Assigner
	summarizer Summarizer
	overview   OverviewGenerator
	filter     Filter
}

// NewAnalyzer makes an analyzer. filter may be nil, requests with Filter set are then not filtered.
func NewAnalyzer(store Store, assigner Assigner, summarizer Summarizer, overview OverviewGenerator, filter Filter) *Analyzer {
	return &Analyzer{store: store, assigner: assigner, summarizer: summarizer, overview: overview, filter: filter}
}

// Analyze loads articles and produces clusters with summaries and an overview.
// Only store failures are errors, model problems make the outcome degraded.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (domain.Analysis, error) {
	st := time.Now()
	articles, err := a.load(ctx, req)
	if err != nil {
		return domain.Analysis{}, err
	}
	res := domain.Analysis{ArticleCount: len(articles), Clusters: []domain.ClusterSummary{}, Outcome: domain.OK()}
	var degraded []string

	if req.Filter && a.filter != nil && len(articles) > 0 {
		filtered, outcome := a.filter.Filter(ctx, articles)
		res.Filtered = len(articles) - len(filtered)
		articles = filtered
		if outcome.IsDegraded() {
			degraded = append(degraded, outcome.Reason)
		}
	}
	if len(articles) == 0 {
		lgr.Printf("[INFO] nothing to analyze, %d articles loaded, %d filtered out", res.ArticleCount, res.Filtered)
		return res, nil
	}

	clusters, outcome := a.assigner.Assign(ctx, articles, req.MaxClusters)
	if outcome.IsDegraded() {
		degraded = append(degraded, outcome.Reason)
	}

	// sequential on purpose, the model endpoint is the bottleneck
	for _, cl := range clusters {
		summary := a.summarizer.Summarize(ctx, cl)
		if summary.Outcome.IsDegraded() {
			degraded = append(degraded, fmt.Sprintf("%s: %s", cl.TopicName, summary.Outcome.Reason))
		}
		res.Clusters = append(res.Clusters, summary)
	}

	text, outcome := a.overview.Generate(ctx, res.Clusters)
	res.Overview = text
	if outcome.IsDegraded() {
		degraded = append(degraded, outcome.Reason)
	}

	if len(degraded) > 0 {
		res.Outcome = domain.Degraded(strings.Join(degraded, "; "))
	}
	lgr.Printf("[INFO] analyzed %d articles into %d clusters in %v, outcome %s",
		len(articles), len(res.Clusters), time.Since(st).Truncate(time.Millisecond), res.Outcome.Status)
	return res, nil
}

func (a *Analyzer) load(ctx context.Context, req Request) ([]domain.Article, error) {
	if len(req.Sources) > 0 {
		articles, err := a.store.QueryManyRecent(ctx, req.Sources, req.DaysBack)
		if err != nil {
			return nil, fmt.Errorf("load articles for %d sources: %w", len(req.Sources), err)
		}
		if req.Limit > 0 && len(articles) > req.Limit {
			articles = articles[:req.Limit]
		}
		return articles, nil
	}
	articles, err := a.store.QueryRecent(ctx, req.DaysBack, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("load recent articles: %w", err)
	}
	return articles, nil
}
