package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/rest"

	"github.com/umputun/trendmind/pkg/analysis"
	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/ingest"
)

// request limits
const (
	maxDaysBack      = 365
	maxRecentLimit   = 100
	maxRecentSources = 20
	maxClusters      = 20
	maxAnalyzeLimit  = 1000
	contentPreview   = 500
)

// collectRequest is the body of batch collection
type collectRequest struct {
	Sources  []string `json:"sources"`
	DaysBack *int     `json:"days_back"`
}

// singleRequest is the body of single source collection, query params work too
type singleRequest struct {
	SourceURL string `json:"source_url"`
	DaysBack  *int   `json:"days_back"`
}

// analyzeRequest is the body of analysis
type analyzeRequest struct {
	Sources     []string `json:"sources"`
	DaysBack    *int     `json:"days_back"`
	MaxClusters int      `json:"max_clusters"`
	Limit       int      `json:"limit"`
	Filter      bool     `json:"filter"`
}

// recentArticle is an article with truncated content
type recentArticle struct {
	ID         int64             `json:"id"`
	SourceURL  string            `json:"source_url"`
	SourceType domain.SourceType `json:"source_type"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Link       string            `json:"link"`
	Published  *time.Time        `json:"published_date"`
	Scraped    *time.Time        `json:"scraped_date"`
}

// healthHandler reports server and database status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := rest.JSON{"status": "healthy", "version": s.version, "timestamp": time.Now().UTC()}
	if err := s.store.Ping(r.Context()); err != nil {
		log.Printf("[WARN] health check failed: %v", err)
		status["status"] = "unhealthy"
		status["error"] = err.Error()
		RenderJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// collectHandler ingests a batch of sources, per-source failures are part of the result
func (s *Server) collectHandler(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := decodeBody(r, &req); err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	sources := cleanSources(req.Sources)
	if len(sources) == 0 {
		RenderError(w, r, errors.New("at least one source must be provided"), http.StatusBadRequest)
		return
	}
	daysBack, err := s.daysBackValue(req.DaysBack)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	log.Printf("[INFO] api collect request: %d sources, %d days back", len(sources), daysBack)
	RenderJSON(w, r, http.StatusOK, s.collector.Collect(r.Context(), sources, daysBack))
}

// collectSingleHandler ingests one source given in json body or query
func (s *Server) collectSingleHandler(w http.ResponseWriter, r *http.Request) {
	var req singleRequest
	if err := decodeBody(r, &req); err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.SourceURL == "" {
		req.SourceURL = r.URL.Query().Get("source_url")
	}
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL == "" {
		RenderError(w, r, errors.New("source_url is required"), http.StatusBadRequest)
		return
	}
	if req.DaysBack == nil {
		v, err := queryInt(r, "days_back")
		if err != nil {
			RenderError(w, r, err, http.StatusBadRequest)
			return
		}
		req.DaysBack = v
	}
	daysBack, err := s.daysBackValue(req.DaysBack)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	if _, err := ingest.Detect(req.SourceURL); err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	res := s.collector.CollectOne(r.Context(), req.SourceURL, daysBack)
	RenderJSON(w, r, http.StatusOK, rest.JSON{"success": !ingest.Failed(res), "result": res, "timestamp": time.Now().UTC()})
}

// statsHandler returns article counts per source
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	v, err := queryInt(r, "days_back")
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	daysBack, err := s.daysBackValue(v)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	counts, err := s.store.CountsBySource(r.Context(), daysBack)
	if err != nil {
		log.Printf("[ERROR] failed to get stats: %v", err)
		RenderError(w, r, errors.New("can't load stats"), http.StatusInternalServerError)
		return
	}
	total := 0
	stats := make(map[string]int, len(counts))
	for _, c := range counts {
		stats[c.SourceURL] = c.Count
		total += c.Count
	}
	RenderJSON(w, r, http.StatusOK, rest.JSON{
		"success":        true,
		"stats":          stats,
		"sources":        counts,
		"total_articles": total,
		"source_count":   len(counts),
		"days_back":      daysBack,
	})
}

// recentArticlesHandler returns recent articles of given or top sources with truncated content
func (s *Server) recentArticlesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", 10)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	if limit < 1 || limit > maxRecentLimit {
		RenderError(w, r, fmt.Errorf("limit must be between 1 and %d", maxRecentLimit), http.StatusBadRequest)
		return
	}
	daysBack, err := queryIntDefault(r, "days_back", 3)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	if daysBack < 1 || daysBack > maxDaysBack {
		RenderError(w, r, fmt.Errorf("days_back must be between 1 and %d", maxDaysBack), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sources := s.canonicalSources(ingest.ParseSourcesList(r.URL.Query().Get("sources")))
	if len(sources) == 0 {
		counts, err := s.store.CountsBySource(ctx, daysBack)
		if err != nil {
			log.Printf("[ERROR] failed to get sources: %v", err)
			RenderError(w, r, errors.New("can't load sources"), http.StatusInternalServerError)
			return
		}
		for _, c := range counts {
			sources = append(sources, c.SourceURL)
		}
	}
	if len(sources) == 0 {
		RenderJSON(w, r, http.StatusOK, rest.JSON{"success": true, "articles": []recentArticle{}, "count": 0, "total_available": 0})
		return
	}
	if len(sources) > maxRecentSources {
		sources = sources[:maxRecentSources]
	}

	articles, err := s.store.QueryManyRecent(ctx, sources, daysBack)
	if err != nil {
		log.Printf("[ERROR] failed to get recent articles: %v", err)
		RenderError(w, r, errors.New("can't load articles"), http.StatusInternalServerError)
		return
	}
	total := len(articles)
	if len(articles) > limit {
		articles = articles[:limit]
	}
	res := make([]recentArticle, 0, len(articles))
	for _, a := range articles {
		res = append(res, toRecentArticle(a))
	}
	RenderJSON(w, r, http.StatusOK, rest.JSON{"success": true, "articles": res, "count": len(res), "total_available": total})
}

// analyzeHandler clusters and summarizes stored articles
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	daysBack, err := s.daysBackValue(req.DaysBack)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.MaxClusters < 0 || req.MaxClusters > maxClusters {
		RenderError(w, r, fmt.Errorf("max_clusters must be between 0 and %d", maxClusters), http.StatusBadRequest)
		return
	}
	if req.Limit < 0 || req.Limit > maxAnalyzeLimit {
		RenderError(w, r, fmt.Errorf("limit must be between 0 and %d", maxAnalyzeLimit), http.StatusBadRequest)
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		Sources:     s.canonicalSources(cleanSources(req.Sources)),
		DaysBack:    daysBack,
		MaxClusters: req.MaxClusters,
		Limit:       req.Limit,
		Filter:      req.Filter,
	})
	if err != nil {
		log.Printf("[ERROR] analysis failed: %v", err)
		RenderError(w, r, errors.New("analysis failed"), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, res)
}

// daysBackValue applies the default and checks the allowed range
func (s *Server) daysBackValue(v *int) (int, error) {
	if v == nil {
		return s.daysBack, nil
	}
	if *v < 1 || *v > maxDaysBack {
		return 0, fmt.Errorf("days_back must be between 1 and %d", maxDaysBack)
	}
	return *v, nil
}

// decodeBody decodes optional json body, empty body is not an error
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// queryInt returns nil for a missing query parameter
func queryInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil //nolint:nilnil // missing value is not an error
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, s)
	}
	return &v, nil
}

// queryIntDefault returns def for a missing query parameter
func queryIntDefault(r *http.Request, name string, def int) (int, error) {
	v, err := queryInt(r, name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

func cleanSources(sources []string) []string {
	res := make([]string, 0, len(sources))
	for _, src := range sources {
		if src = strings.TrimSpace(src); src != "" {
			res = append(res, src)
		}
	}
	return res
}

// canonicalSources maps identifiers to the source urls they are stored under.
// Unsupported identifiers are kept as is and match nothing.
func (s *Server) canonicalSources(sources []string) []string {
	res := make([]string, 0, len(sources))
	for _, src := range sources {
		canonical, err := s.collector.Canonical(src)
		if err != nil {
			log.Printf("[DEBUG] can't resolve source %q: %v", src, err)
			canonical = src
		}
		res = append(res, canonical)
	}
	return res
}

func toRecentArticle(a domain.Article) recentArticle {
	res := recentArticle{ID: a.ID, SourceURL: a.SourceURL, SourceType: a.SourceType, Title: a.Title, Link: a.Link, Content: a.Content}
	if r := []rune(a.Content); len(r) > contentPreview {
		res.Content = string(r[:contentPreview]) + "..."
	}
	if !a.Published.IsZero() {
		t := a.Published
		res.Published = &t
	}
	if !a.Scraped.IsZero() {
		t := a.Scraped
		res.Scraped = &t
	}
	return res
}
