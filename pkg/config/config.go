package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=5m,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:trendmind.db?cache=shared&mode=rwc,description=Database connection string (postgres:// selects PostgreSQL)"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Sources    SourcesConfig    `yaml:"sources" json:"sources" jsonschema:"description=Source ingestion settings"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Full-text extraction for feed articles"`
	Newsletter NewsletterConfig `yaml:"newsletter" json:"newsletter" jsonschema:"description=Newsletter full-text fetch settings"`
	Microblog  MicroblogConfig  `yaml:"microblog" json:"microblog" jsonschema:"description=Microblog search API settings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for clustering and summarization"`
	Retention  RetentionConfig  `yaml:"retention" json:"retention" jsonschema:"description=Stored articles retention"`
}

// SourcesConfig holds ingestion settings shared by all source kinds
type SourcesConfig struct {
	DaysBack  int           `yaml:"days_back" json:"days_back" jsonschema:"default=7,minimum=1,maximum=365,description=Default lookback window in days"`
	Freshness time.Duration `yaml:"freshness" json:"freshness" jsonschema:"default=24h,description=Cached articles scraped within this window are served without refetch"`
	File      string        `yaml:"file" json:"file" jsonschema:"description=Default sources file with one url or handle per line"`
}

// ExtractionConfig holds content extraction settings for feed articles
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Download and extract full article text"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	RateLimit     time.Duration `yaml:"rate_limit" json:"rate_limit" jsonschema:"default=500ms,description=Minimum delay between page fetches"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=TrendMind/1.0,description=User agent for HTTP requests"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=0,description=Minimum text length to consider valid"`
}

// NewsletterConfig holds newsletter page fetch settings
type NewsletterConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Full-text page fetch timeout"`
	RateLimit time.Duration `yaml:"rate_limit" json:"rate_limit" jsonschema:"default=500ms,description=Minimum delay between page fetches"`
}

// MicroblogConfig holds microblog API settings
type MicroblogConfig struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.twitter.com/2,description=Search API base URL"`
	BearerToken string `yaml:"bearer_token" json:"bearer_token" jsonschema:"description=API bearer token (can use environment variable)"`
	MaxResults  int    `yaml:"max_results" json:"max_results" jsonschema:"default=10,minimum=10,maximum=100,description=Posts requested per search"`
}

// LLMConfig holds LLM configuration
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"required,description=OpenAI-compatible API endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	APIType     string        `yaml:"api_type" json:"api_type" jsonschema:"default=openai,enum=openai,enum=azure,description=API flavor"`
	APIVersion  string        `yaml:"api_version" json:"api_version" jsonschema:"description=API version (required for azure)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"required,description=Model or deployment name"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for clustering requests"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Request timeout"`

	Clustering ClusteringConfig `yaml:"clustering" json:"clustering" jsonschema:"description=Clustering settings"`
	Summary    SummaryConfig    `yaml:"summary" json:"summary" jsonschema:"description=Summarization settings"`
	Filter     FilterConfig     `yaml:"filter" json:"filter" jsonschema:"description=Relevance filter settings"`
}

// ClusteringConfig holds clustering-specific settings
type ClusteringConfig struct {
	MinClusters   int  `yaml:"min_clusters" json:"min_clusters" jsonschema:"default=2,minimum=1,description=Lower bound of clusters communicated to the model"`
	MaxClusters   int  `yaml:"max_clusters" json:"max_clusters" jsonschema:"default=8,minimum=1,description=Upper bound of clusters"`
	ExcerptLength int  `yaml:"excerpt_length" json:"excerpt_length" jsonschema:"default=200,description=Characters of content sent per article"`
	UseJSONMode   bool `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=true,description=Use JSON response format (not all models support this)"`
}

// SummaryConfig holds cluster summarization settings
type SummaryConfig struct {
	MaxArticles   int     `yaml:"max_articles" json:"max_articles" jsonschema:"default=10,description=Articles included in a cluster prompt"`
	ExcerptLength int     `yaml:"excerpt_length" json:"excerpt_length" jsonschema:"default=500,description=Characters of content per article"`
	MaxTokens     int     `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,description=Maximum tokens in summary"`
	Temperature   float64 `yaml:"temperature" json:"temperature" jsonschema:"default=0.7,description=Temperature for summaries"`
	TopN          int     `yaml:"top_n" json:"top_n" jsonschema:"default=5,description=Clusters included in the final overview"`
}

// FilterConfig holds relevance filter settings
type FilterConfig struct {
	Enabled      bool `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Filter articles for AI relevance before clustering"`
	SkipKeywords bool `yaml:"skip_keywords" json:"skip_keywords" jsonschema:"default=false,description=Skip the keyword pre-filter and send every article to the model"`
	ChunkSize    int  `yaml:"chunk_size" json:"chunk_size" jsonschema:"default=20,minimum=1,description=Articles per filter request"`
}

// RetentionConfig holds retention sweep settings
type RetentionConfig struct {
	DaysToKeep int           `yaml:"days_to_keep" json:"days_to_keep" jsonschema:"default=90,minimum=1,description=Keep articles published within this many days"`
	Interval   time.Duration `yaml:"interval" json:"interval" jsonschema:"default=24h,description=Sweep interval in server mode"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// extraction defaults to enabled, yaml can't tell missing from false
	var raw struct {
		Extraction map[string]any `yaml:"extraction"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &raw); err == nil {
		if _, ok := raw.Extraction["enabled"]; !ok {
			cfg.Extraction.Enabled = true
		}
	}

	cfg.setDefaults()

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with defaults
func (c *Config) setDefaults() {
	// server
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 5 * time.Minute
	}

	// database
	if c.Database.DSN == "" {
		c.Database.DSN = "file:trendmind.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	// sources
	if c.Sources.DaysBack == 0 {
		c.Sources.DaysBack = 7
	}
	if c.Sources.Freshness == 0 {
		c.Sources.Freshness = 24 * time.Hour
	}

	// extraction
	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 30 * time.Second
	}
	if c.Extraction.RateLimit == 0 {
		c.Extraction.RateLimit = 500 * time.Millisecond
	}
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = "TrendMind/1.0"
	}

	// newsletter
	if c.Newsletter.Timeout == 0 {
		c.Newsletter.Timeout = 15 * time.Second
	}
	if c.Newsletter.RateLimit == 0 {
		c.Newsletter.RateLimit = 500 * time.Millisecond
	}

	// microblog
	if c.Microblog.Endpoint == "" {
		c.Microblog.Endpoint = "https://api.twitter.com/2"
	}
	if c.Microblog.MaxResults == 0 {
		c.Microblog.MaxResults = 10
	}

	// llm
	if c.LLM.APIType == "" {
		c.LLM.APIType = "openai"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.Clustering.MinClusters == 0 {
		c.LLM.Clustering.MinClusters = 2
	}
	if c.LLM.Clustering.MaxClusters == 0 {
		c.LLM.Clustering.MaxClusters = 8
	}
	if c.LLM.Clustering.ExcerptLength == 0 {
		c.LLM.Clustering.ExcerptLength = 200
	}
	if c.LLM.Summary.MaxArticles == 0 {
		c.LLM.Summary.MaxArticles = 10
	}
	if c.LLM.Summary.ExcerptLength == 0 {
		c.LLM.Summary.ExcerptLength = 500
	}
	if c.LLM.Summary.MaxTokens == 0 {
		c.LLM.Summary.MaxTokens = 500
	}
	if c.LLM.Summary.Temperature == 0 {
		c.LLM.Summary.Temperature = 0.7
	}
	if c.LLM.Summary.TopN == 0 {
		c.LLM.Summary.TopN = 5
	}
	if c.LLM.Filter.ChunkSize == 0 {
		c.LLM.Filter.ChunkSize = 20
	}

	// retention
	if c.Retention.DaysToKeep == 0 {
		c.Retention.DaysToKeep = 90
	}
	if c.Retention.Interval == 0 {
		c.Retention.Interval = 24 * time.Hour
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate LLM config
	if cfg.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required")
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.APIType != "openai" && cfg.LLM.APIType != "azure" {
		return fmt.Errorf("llm.api_type must be openai or azure, got %q", cfg.LLM.APIType)
	}
	if cfg.LLM.APIType == "azure" && cfg.LLM.APIVersion == "" {
		return fmt.Errorf("llm.api_version is required for azure")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.Clustering.MinClusters > cfg.LLM.Clustering.MaxClusters {
		return fmt.Errorf("llm.clustering.min_clusters must not exceed max_clusters")
	}
	if cfg.LLM.Filter.ChunkSize < 1 {
		return fmt.Errorf("llm.filter.chunk_size must be at least 1")
	}

	// validate sources config
	if cfg.Sources.DaysBack < 1 || cfg.Sources.DaysBack > 365 {
		return fmt.Errorf("sources.days_back must be between 1 and 365")
	}
	if cfg.Sources.Freshness < time.Minute {
		return fmt.Errorf("sources.freshness must be at least 1 minute")
	}

	// validate extraction config
	if cfg.Extraction.Enabled && cfg.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}
	if cfg.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction min_text_length must be non-negative")
	}

	if cfg.Microblog.MaxResults < 10 || cfg.Microblog.MaxResults > 100 {
		return fmt.Errorf("microblog.max_results must be between 10 and 100")
	}

	if cfg.Retention.DaysToKeep < 1 {
		return fmt.Errorf("retention.days_to_keep must be at least 1")
	}
	if cfg.Retention.Interval < time.Minute {
		return fmt.Errorf("retention.interval must be at least 1 minute")
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// Secrets returns configured credentials to be masked in logs
func (c *Config) Secrets() []string {
	var res []string
	for _, s := range []string{c.LLM.APIKey, c.Microblog.BearerToken} {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}
