package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/umputun/trendmind/pkg/analysis"
	"github.com/umputun/trendmind/pkg/config"
	"github.com/umputun/trendmind/pkg/content"
	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/feed"
	"github.com/umputun/trendmind/pkg/freshness"
	"github.com/umputun/trendmind/pkg/ingest"
	"github.com/umputun/trendmind/pkg/llm"
	"github.com/umputun/trendmind/pkg/microblog"
	"github.com/umputun/trendmind/pkg/repository"
	"github.com/umputun/trendmind/server"
)

// app holds wired components shared by commands
type app struct {
	cfg       *config.Config
	repos     *repository.Repositories
	collector *ingest.Collector
	analyzer  *analysis.Analyzer
}

// run executes the named command, output goes to out
func run(ctx context.Context, opts Opts, command string, out io.Writer) error {
	// dataset tooling works on files only
	switch command {
	case "dataset export":
		return datasetExport(opts.Dataset.Export, out)
	case "dataset analyze":
		return datasetAnalyze(opts.Dataset.Analyze, out)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLog(opts.Debug, opts.NoColor, cfg.Secrets()...)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.repos.Close(); err != nil {
			log.Printf("[WARN] failed to close database: %v", err)
		}
	}()

	switch command {
	case "server":
		return a.runServer(ctx, opts.Server, opts.Debug)
	case "collect":
		return a.collect(ctx, opts.Collect, out)
	case "analyze":
		return a.analyze(ctx, opts.Analyze, out)
	case "stats":
		return a.stats(ctx, opts.Stats, out)
	case "purge":
		return a.purge(ctx, opts.Purge, out)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// newApp opens the store and wires ingestion and analysis
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	store := repos.Article

	parser := feed.NewParser(cfg.Extraction.Timeout, cfg.Extraction.UserAgent)
	var extractor ingest.Extractor // nil keeps feed text as is
	if cfg.Extraction.Enabled {
		extractor = content.NewHTTPExtractor(cfg.Extraction.Timeout, cfg.Extraction.UserAgent, cfg.Extraction.MinTextLength)
	}
	pages := content.NewParagraphExtractor(cfg.Newsletter.Timeout, cfg.Extraction.UserAgent)

	policy := freshness.NewPolicy(store, freshness.WithThreshold(cfg.Sources.Freshness))
	collector := ingest.NewCollector(map[domain.SourceType]ingest.SourceIngestor{
		domain.SourceFeed: ingest.NewIngestor(ingest.NewFeedProvider(parser, extractor, cfg.Extraction.RateLimit), store, policy),
		domain.SourceNewsletter: ingest.NewIngestor(ingest.NewNewsletterProvider(parser, pages, cfg.Newsletter.RateLimit),
			store, policy),
		domain.SourceMicroblog: ingest.NewIngestor(ingest.NewMicroblogProvider(microblog.NewClient(cfg.Microblog)), store, policy),
	})

	client := llm.NewClient(cfg.LLM)
	analyzer := analysis.NewAnalyzer(store, llm.NewClusterer(client, cfg.LLM), llm.NewSummarizer(client, cfg.LLM),
		llm.NewOverview(client, cfg.LLM), llm.NewRelevanceFilter(client, cfg.LLM))

	return &app{cfg: cfg, repos: repos, collector: collector, analyzer: analyzer}, nil
}

// runServer runs REST API and retention sweeper until ctx is canceled or the server fails
func (a *app) runServer(ctx context.Context, opts ServerCmd, debug bool) error {
	if opts.Listen != "" {
		a.cfg.Server.Listen = opts.Listen
	}
	srv := server.New(server.Params{
		Config:    a.cfg,
		Collector: a.collector,
		Store:     a.repos.Article,
		Analyzer:  a.analyzer,
		Version:   revision,
		Debug:     debug,
		DaysBack:  a.cfg.Sources.DaysBack,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweepRetention(gctx, a.repos.Article, a.cfg.Retention)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Print("[INFO] shutdown complete")
	return nil
}

// purger deletes expired articles
type purger interface {
	PurgeOlderThan(ctx context.Context, daysToKeep int) (int64, error)
}

// sweepRetention purges expired articles right away and then every interval, until ctx is done
func sweepRetention(ctx context.Context, store purger, cfg config.RetentionConfig) {
	sweep := func() {
		n, err := store.PurgeOlderThan(ctx, cfg.DaysToKeep)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[WARN] retention sweep failed: %v", err)
			}
			return
		}
		log.Printf("[INFO] retention sweep removed %d articles older than %d days", n, cfg.DaysToKeep)
	}

	sweep()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
