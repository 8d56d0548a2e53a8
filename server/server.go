package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/trendmind/pkg/analysis"
	"github.com/umputun/trendmind/pkg/domain"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/collector.go -pkg mocks -skip-ensure -fmt goimports . Collector
//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store
//go:generate moq -out mocks/analyzer.go -pkg mocks -skip-ensure -fmt goimports . Analyzer

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	collector Collector
	store     Store
	analyzer  Analyzer
	version   string
	debug     bool
	daysBack  int

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Collector ingests sources on demand
type Collector interface {
	Collect(ctx context.Context, identifiers []string, daysBack int) domain.BatchResult
	CollectOne(ctx context.Context, identifier string, daysBack int) domain.SourceResult
	Canonical(identifier string) (string, error)
}

// Store provides read access to stored articles
type Store interface {
	CountsBySource(ctx context.Context, daysBack int) ([]domain.SourceCount, error)
	QueryManyRecent(ctx context.Context, sourceURLs []string, daysBack int) ([]domain.Article, error)
	Ping(ctx context.Context) error
}

// Analyzer clusters and summarizes stored articles
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (domain.Analysis, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Params groups server dependencies
type Params struct {
	Config    ConfigProvider
	Collector Collector
	Store     Store
	Analyzer  Analyzer
	Version   string
	Debug     bool
	DaysBack  int // default lookback when a request has none
}

// New initializes a new server instance
func New(p Params) *Server {
	s := &Server{
		config:    p.Config,
		collector: p.Collector,
		store:     p.Store,
		analyzer:  p.Analyzer,
		version:   p.Version,
		debug:     p.Debug,
		daysBack:  p.DaysBack,
		router:    routegroup.New(http.NewServeMux()),
	}
	if s.daysBack <= 0 {
		s.daysBack = 7
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.lock.Lock()
		defer s.lock.Unlock()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("trendmind", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.healthHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("POST /collect", s.collectHandler)
		r.HandleFunc("POST /collect/single", s.collectSingleHandler)
		r.HandleFunc("GET /stats", s.statsHandler)
		r.HandleFunc("GET /recent-articles", s.recentArticlesHandler)
		r.HandleFunc("POST /analyze", s.analyzeHandler)
	})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, rest.JSON{"error": errMsg})
}
