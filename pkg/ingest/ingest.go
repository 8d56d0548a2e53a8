// Package ingest implements the fetch, dedup and persist cycle for feed, newsletter and microblog sources.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/freshness"
	"github.com/umputun/trendmind/pkg/repository"
)

// Entry is a raw item fetched from a provider, before it is turned into an article
type Entry struct {
	ID        string
	Title     string
	Link      string
	Summary   string
	Content   string
	Published time.Time // zero if the provider gave no parseable date
	RawDate   string
}

// Provider fetches entries of one source kind and materializes them into articles
type Provider interface {
	Kind() domain.SourceType
	// Normalize turns a user supplied identifier into the canonical source url
	Normalize(identifier string) (string, error)
	// Entries fetches raw entries of the source
	Entries(ctx context.Context, sourceURL string) ([]Entry, error)
	// Materialize builds the article for an entry not stored yet, may perform a full-text fetch
	Materialize(ctx context.Context, sourceURL string, e Entry) (domain.Article, error)
}

// Store is the article storage used by ingestion
type Store interface {
	freshness.Store
	Session(ctx context.Context) (*repository.Session, error)
}

// Ingestor runs ingestion of a single source with the given provider
type Ingestor struct {
	provider Provider
	store    Store
	policy   *freshness.Policy
	now      func() time.Time
}

// NewIngestor makes an ingestor for the provider
func NewIngestor(provider Provider, store Store, policy *freshness.Policy) *Ingestor {
	return &Ingestor{provider: provider, store: store, policy: policy, now: time.Now}
}

// Kind returns source type handled by the ingestor
func (i *Ingestor) Kind() domain.SourceType {
	return i.provider.Kind()
}

// Canonical returns the source url of the identifier
func (i *Ingestor) Canonical(identifier string) (string, error) {
	return i.provider.Normalize(identifier)
}

// Ingest serves cached articles if the source was scraped recently, otherwise fetches the source,
// skips entries outside the lookback window or already stored, and inserts the rest in one call.
// Per-entry failures are collected in the result. The returned error is set when the source
// itself can't be fetched or the store fails, the result still carries what was cached.
func (i *Ingestor) Ingest(ctx context.Context, identifier string, daysBack int) (domain.IngestResult, error) {
	kind := i.provider.Kind()
	sourceURL, err := i.provider.Normalize(identifier)
	if err != nil {
		return domain.IngestResult{SourceURL: identifier, SourceType: kind, Articles: []domain.Article{}}, err
	}
	res := domain.IngestResult{SourceURL: sourceURL, SourceType: kind, Articles: []domain.Article{}}

	decision, err := i.policy.Decide(ctx, sourceURL, kind, daysBack)
	if err != nil {
		return res, fmt.Errorf("check cache: %w", err)
	}
	res.Articles = decision.Existing
	res.CachedCount = len(decision.Existing)
	if !decision.NeedsRefetch {
		lgr.Printf("[INFO] using %d cached articles for %s", len(decision.Existing), sourceURL)
		res.FromCache = true
		return res, nil
	}

	lgr.Printf("[INFO] fetching %s source %s", kind, sourceURL)
	entries, err := i.provider.Entries(ctx, sourceURL)
	if err != nil {
		lgr.Printf("[WARN] failed to fetch %s: %v", sourceURL, err)
		return res, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}

	sess, err := i.store.Session(ctx)
	if err != nil {
		return res, fmt.Errorf("open store session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			lgr.Printf("[WARN] %v", err)
		}
	}()

	now := i.now()
	cutoff := now.AddDate(0, 0, -daysBack)
	fresh := make([]domain.Article, 0, len(entries))
	batch := make(map[time.Time]bool, len(entries)) // publication times taken in this run
	var skippedOld, known int
	for _, e := range entries {
		if e.Published.IsZero() {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %s: missing or invalid publication date %q", entryName(e), e.RawDate))
			continue
		}
		if e.Published.Before(cutoff) {
			skippedOld++
			continue
		}

		published := domain.NormalizeTime(e.Published)
		if batch[published] {
			known++
			continue
		}

		found, err := sess.Exists(ctx, sourceURL, published)
		if err != nil {
			// fail closed, insert conflict handling still prevents duplicates
			lgr.Printf("[WARN] dedup check failed for %s, treating as new: %v", entryName(e), err)
		}
		if found {
			known++
			continue
		}

		article, err := i.provider.Materialize(ctx, sourceURL, e)
		if err != nil {
			lgr.Printf("[WARN] failed to process entry %s of %s: %v", entryName(e), sourceURL, err)
			res.Errors = append(res.Errors, fmt.Sprintf("entry %s: %v", entryName(e), err))
			continue
		}
		article.SourceType, article.SourceURL = kind, sourceURL
		article.Published, article.Scraped = published, domain.NormalizeTime(now)
		batch[published] = true
		fresh = append(fresh, article)
	}

	inserted, err := sess.BulkInsert(ctx, fresh)
	if err != nil {
		return res, fmt.Errorf("store articles of %s: %w", sourceURL, err)
	}

	res.NewCount = inserted
	res.Articles = mergeArticles(decision.Existing, fresh)
	lgr.Printf("[INFO] ingested %s: %d entries, %d new, %d cached, %d already stored, %d outside window, %d errors",
		sourceURL, len(entries), inserted, res.CachedCount, known, skippedOld, len(res.Errors))
	return res, nil
}

// mergeArticles combines cached and fresh articles, keeping the first article for each identity,
// newest first
func mergeArticles(existing, fresh []domain.Article) []domain.Article {
	seen := make(map[domain.ArticleKey]bool, len(existing)+len(fresh))
	res := make([]domain.Article, 0, len(existing)+len(fresh))
	for _, list := range [][]domain.Article{existing, fresh} {
		for _, a := range list {
			key := a.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			res = append(res, a)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Published.After(res[j].Published) })
	return res
}

func entryName(e Entry) string {
	switch {
	case e.Title != "":
		return fmt.Sprintf("%q", e.Title)
	case e.Link != "":
		return e.Link
	default:
		return e.ID
	}
}
