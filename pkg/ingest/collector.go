package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/trendmind/pkg/domain"
)

// SourceIngestor ingests one source
type SourceIngestor interface {
	Ingest(ctx context.Context, identifier string, daysBack int) (domain.IngestResult, error)
	Canonical(identifier string) (string, error)
}

// Collector ingests a batch of sources one after another, picking the ingestor by detected source type
type Collector struct {
	ingestors map[domain.SourceType]SourceIngestor
	now       func() time.Time
}

// NewCollector makes a collector with ingestors per source type
func NewCollector(ingestors map[domain.SourceType]SourceIngestor) *Collector {
	return &Collector{ingestors: ingestors, now: time.Now}
}

// Collect processes all sources sequentially. A failing source is reported in its own result
// and never stops the batch.
func (c *Collector) Collect(ctx context.Context, identifiers []string, daysBack int) domain.BatchResult {
	res := domain.BatchResult{
		RunID:   uuid.New().String(),
		Success: true,
		Sources: make([]domain.SourceResult, 0, len(identifiers)),
	}
	lgr.Printf("[INFO] collection %s started, %d sources, %d days back", res.RunID, len(identifiers), daysBack)

	for i, id := range identifiers {
		if err := ctx.Err(); err != nil {
			// remaining sources are reported as failed
			res.Sources = append(res.Sources, domain.SourceResult{SourceURL: id, Articles: []domain.Article{},
				Error: fmt.Sprintf("not processed: %v", err)})
			continue
		}
		lgr.Printf("[DEBUG] processing source %d/%d: %s", i+1, len(identifiers), id)
		res.Sources = append(res.Sources, c.CollectOne(ctx, id, daysBack))
	}

	res.Summary = summarize(res.Sources)
	res.Timestamp = c.now().UTC()
	lgr.Printf("[INFO] collection %s done, sources: %d ok, %d failed; articles: %d total, %d new, %d cached",
		res.RunID, res.Summary.SuccessfulSources, res.Summary.FailedSources, res.Summary.TotalArticles,
		res.Summary.NewArticles, res.Summary.CachedArticles)
	return res
}

// CollectOne detects the type of a single source and ingests it
func (c *Collector) CollectOne(ctx context.Context, identifier string, daysBack int) domain.SourceResult {
	st := c.now()
	res := domain.SourceResult{SourceURL: identifier, Articles: []domain.Article{}}

	kind, err := Detect(identifier)
	if err != nil {
		lgr.Printf("[WARN] %v", err)
		res.Error = err.Error()
		res.ProcessingTime = c.now().Sub(st).Seconds()
		return res
	}
	res.SourceType = kind

	ing, ok := c.ingestors[kind]
	if !ok {
		res.Error = fmt.Sprintf("%v: no ingestor for %s sources", ErrUnsupportedSource, kind)
		res.ProcessingTime = c.now().Sub(st).Seconds()
		return res
	}

	ir, err := ing.Ingest(ctx, identifier, daysBack)
	if ir.SourceURL != "" {
		res.SourceURL = ir.SourceURL
	}
	if ir.Articles != nil {
		res.Articles = ir.Articles
	}
	res.NewCount = ir.NewCount
	res.CachedCount = ir.CachedCount
	res.Errors = ir.Errors
	if err != nil {
		lgr.Printf("[WARN] source %s failed: %v", identifier, err)
		res.Error = err.Error()
	}
	res.ProcessingTime = c.now().Sub(st).Seconds()
	return res
}

// Canonical returns the source url an identifier is stored under, the same one ingestion uses
func (c *Collector) Canonical(identifier string) (string, error) {
	kind, err := Detect(identifier)
	if err != nil {
		return "", err
	}
	ing, ok := c.ingestors[kind]
	if !ok {
		return "", fmt.Errorf("%w: no ingestor for %s sources", ErrUnsupportedSource, kind)
	}
	return ing.Canonical(identifier)
}

// CanonicalSources maps identifiers to their source urls, identifiers that can't be resolved are kept as is
func (c *Collector) CanonicalSources(identifiers []string) []string {
	res := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		src, err := c.Canonical(id)
		if err != nil {
			lgr.Printf("[DEBUG] can't resolve source %q: %v", id, err)
			src = id
		}
		res = append(res, src)
	}
	return res
}

// Failed reports whether the source error means the whole source failed
func Failed(r domain.SourceResult) bool {
	return r.Error != ""
}

func summarize(results []domain.SourceResult) domain.BatchSummary {
	res := domain.BatchSummary{TotalSources: len(results)}
	for _, r := range results {
		if Failed(r) {
			res.FailedSources++
		} else {
			res.SuccessfulSources++
		}
		res.TotalArticles += len(r.Articles)
		res.NewArticles += r.NewCount
		res.CachedArticles += r.CachedCount
	}
	return res
}

// IsUnsupported reports whether err is caused by an unsupported source identifier
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedSource)
}
