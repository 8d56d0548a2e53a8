package domain

import "time"

// IngestResult is the outcome of a single source ingestion
type IngestResult struct {
	SourceURL   string     `json:"source_url"`
	SourceType  SourceType `json:"source_type"`
	Articles    []Article  `json:"articles"`
	NewCount    int        `json:"new_count"`
	CachedCount int        `json:"cached_count"`
	FromCache   bool       `json:"from_cache"`
	Errors      []string   `json:"errors,omitempty"`
}

// SourceResult is a per-source entry of a batch collection
type SourceResult struct {
	SourceURL      string     `json:"source_url"`
	SourceType     SourceType `json:"source_type"`
	Articles       []Article  `json:"articles"`
	NewCount       int        `json:"new_count"`
	CachedCount    int        `json:"cached_count"`
	Errors         []string   `json:"entry_errors,omitempty"`
	Error          string     `json:"error,omitempty"`
	ProcessingTime float64    `json:"processing_time"` // seconds
}

// BatchSummary aggregates a batch collection
type BatchSummary struct {
	TotalSources      int `json:"total_sources"`
	SuccessfulSources int `json:"successful_sources"`
	FailedSources     int `json:"failed_sources"`
	TotalArticles     int `json:"total_articles"`
	NewArticles       int `json:"new_articles"`
	CachedArticles    int `json:"cached_articles"`
}

// BatchResult is the result of collecting many sources
type BatchResult struct {
	RunID     string         `json:"run_id"`
	Success   bool           `json:"success"`
	Sources   []SourceResult `json:"sources"`
	Summary   BatchSummary   `json:"summary"`
	Timestamp time.Time      `json:"timestamp"`
}
