package domain

import (
	"strings"
	"time"
)

// SourceType identifies the kind of origin an article was collected from
type SourceType string

// enum of supported source types
const (
	SourceFeed       SourceType = "feed"
	SourceMicroblog  SourceType = "microblog"
	SourceNewsletter SourceType = "newsletter-feed"
)

// Article represents a single collected piece of content.
// Identity is the pair of trimmed SourceURL and Published, see Key.
type Article struct {
	ID         int64      `json:"id"`
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url"` // origin feed or handle url, not the article link
	Title      string     `json:"title,omitempty"`
	Content    string     `json:"content"`
	Link       string     `json:"link,omitempty"`
	Published  time.Time  `json:"published_date"`
	Scraped    time.Time  `json:"scraped_date"`
}

// ArticleKey is the deduplication key of an article
type ArticleKey struct {
	SourceURL string
	Published time.Time
}

// Key returns normalized identity of the article
func (a Article) Key() ArticleKey {
	return ArticleKey{SourceURL: strings.TrimSpace(a.SourceURL), Published: NormalizeTime(a.Published)}
}

// Identifier returns a human-readable identifier for logs
func (a Article) Identifier() string {
	switch {
	case a.Title != "":
		return a.Title
	case a.Link != "":
		return a.Link
	default:
		return a.SourceURL + "@" + a.Published.Format(time.RFC3339)
	}
}

// NormalizeTime converts t to UTC with microsecond precision, the precision both stores keep
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// SourceCount is the number of articles stored for a source
type SourceCount struct {
	SourceURL string `json:"source_url"`
	Count     int    `json:"count"`
}
