package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/trendmind/pkg/domain"
)

// ArticleRepository handles article storage. Articles are keyed by (source_url, published_date),
// inserts never overwrite an existing row.
type ArticleRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// articleSQL represents an article for SQL operations
type articleSQL struct {
	ID         int64     `db:"id"`
	SourceType string    `db:"source_type"`
	SourceURL  string    `db:"source_url"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	Link       string    `db:"link"`
	Published  time.Time `db:"published_date"`
	Scraped    time.Time `db:"scraped_date"`
}

// sourceCountSQL is a row of per-source aggregate
type sourceCountSQL struct {
	SourceURL string `db:"source_url"`
	Count     int    `db:"cnt"`
}

// dbConn is the part of sqlx.DB and sqlx.Conn used for dedup checks and inserts
type dbConn interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Rebind(query string) string
}

const articleColumns = "id, source_type, source_url, title, content, link, published_date, scraped_date"

const insertArticleQuery = `
	INSERT INTO articles (source_type, source_url, title, content, link, published_date, scraped_date)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (source_url, published_date) DO NOTHING`

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db, now: time.Now}
}

// Ping checks the database connection
func (r *ArticleRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Exists checks if an article with the given identity is stored.
// Not found is not an error, err is set only when the store can't be queried.
func (r *ArticleRepository) Exists(ctx context.Context, sourceURL string, published time.Time) (bool, error) {
	return exists(ctx, r.db, sourceURL, published)
}

// BulkInsert stores articles skipping those already present, returns number of rows created.
// A failed row is rolled back and skipped, the rest of the batch is still committed.
func (r *ArticleRepository) BulkInsert(ctx context.Context, articles []domain.Article) (int, error) {
	return bulkInsert(ctx, r.db, articles, r.now())
}

// QueryRange returns articles of a source published within [start, end], newest first
func (r *ArticleRepository) QueryRange(ctx context.Context, sourceURL string, start, end time.Time) ([]domain.Article, error) {
	query := r.db.Rebind(`SELECT ` + articleColumns + ` FROM articles
		WHERE source_url = ? AND published_date >= ? AND published_date <= ?
		ORDER BY published_date DESC`)

	var rows []articleSQL
	err := r.db.SelectContext(ctx, &rows, query, strings.TrimSpace(sourceURL),
		domain.NormalizeTime(start), domain.NormalizeTime(end))
	if err != nil {
		return nil, fmt.Errorf("query articles range: %w", err)
	}
	return toDomainArticles(rows), nil
}

// QueryManyRecent returns articles of all given sources published within daysBack days, newest first
func (r *ArticleRepository) QueryManyRecent(ctx context.Context, sourceURLs []string, daysBack int) ([]domain.Article, error) {
	if len(sourceURLs) == 0 {
		return []domain.Article{}, nil
	}
	urls := make([]string, len(sourceURLs))
	for i, u := range sourceURLs {
		urls[i] = strings.TrimSpace(u)
	}

	query, args, err := sqlx.In(`SELECT `+articleColumns+` FROM articles
		WHERE source_url IN (?) AND published_date >= ?
		ORDER BY published_date DESC`, urls, r.cutoff(daysBack))
	if err != nil {
		return nil, fmt.Errorf("build recent articles query: %w", err)
	}

	var rows []articleSQL
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}
	return toDomainArticles(rows), nil
}

// QueryRecent returns up to limit articles of any source published within daysBack days, newest first.
// Zero limit means no limit.
func (r *ArticleRepository) QueryRecent(ctx context.Context, daysBack, limit int) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE published_date >= ? ORDER BY published_date DESC`
	args := []any{r.cutoff(daysBack)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []articleSQL
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query recent articles: %w", err)
	}
	return toDomainArticles(rows), nil
}

// CountsBySource returns number of articles per source published within daysBack days,
// largest sources first
func (r *ArticleRepository) CountsBySource(ctx context.Context, daysBack int) ([]domain.SourceCount, error) {
	query := r.db.Rebind(`SELECT source_url, COUNT(*) AS cnt FROM articles
		WHERE published_date >= ?
		GROUP BY source_url
		ORDER BY cnt DESC, source_url ASC`)

	var rows []sourceCountSQL
	if err := r.db.SelectContext(ctx, &rows, query, r.cutoff(daysBack)); err != nil {
		return nil, fmt.Errorf("count articles by source: %w", err)
	}

	res := make([]domain.SourceCount, len(rows))
	for i, row := range rows {
		res[i] = domain.SourceCount{SourceURL: row.SourceURL, Count: row.Count}
	}
	return res, nil
}

// PurgeOlderThan deletes articles published more than daysToKeep days ago, returns number of deleted rows
func (r *ArticleRepository) PurgeOlderThan(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep < 1 {
		return 0, fmt.Errorf("days to keep must be positive, got %d", daysToKeep)
	}
	cutoff := r.cutoff(daysToKeep)
	query := r.db.Rebind("DELETE FROM articles WHERE published_date < ?")

	var deleted int64
	var critical error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			critical = fmt.Errorf("purge articles: %w", err)
			return nil
		}
		deleted, err = res.RowsAffected()
		if err != nil {
			critical = fmt.Errorf("get deleted count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge articles: %w", err)
	}
	if critical != nil {
		return 0, critical
	}

	lgr.Printf("[INFO] purged %d articles published before %s", deleted, cutoff.Format(time.RFC3339))
	return deleted, nil
}

// Session acquires a dedicated connection for one ingestion run.
// All dedup checks and the final insert of the run go through it, caller must Close it.
func (r *ArticleRepository) Session(ctx context.Context) (*Session, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn, now: r.now}, nil
}

func (r *ArticleRepository) cutoff(days int) time.Time {
	return domain.NormalizeTime(r.now().AddDate(0, 0, -days))
}

// Session is a store connection scoped to a single ingestion run
type Session struct {
	conn *sqlx.Conn
	now  func() time.Time
}

// Exists checks if an article with the given identity is stored
func (s *Session) Exists(ctx context.Context, sourceURL string, published time.Time) (bool, error) {
	return exists(ctx, s.conn, sourceURL, published)
}

// BulkInsert stores articles skipping those already present, returns number of rows created
func (s *Session) BulkInsert(ctx context.Context, articles []domain.Article) (int, error) {
	return bulkInsert(ctx, s.conn, articles, s.now())
}

// Close releases the session connection back to the pool
func (s *Session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func exists(ctx context.Context, c dbConn, sourceURL string, published time.Time) (bool, error) {
	var found int
	query := c.Rebind("SELECT 1 FROM articles WHERE source_url = ? AND published_date = ? LIMIT 1")
	err := c.GetContext(ctx, &found, query, strings.TrimSpace(sourceURL), domain.NormalizeTime(published))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check article exists: %w", err)
	}
	return true, nil
}

// bulkInsert writes all articles in one transaction with a savepoint per row.
// Lock errors restart the whole batch, other row errors only drop the row.
func bulkInsert(ctx context.Context, c dbConn, articles []domain.Article, scraped time.Time) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	scraped = domain.NormalizeTime(scraped)
	query := c.Rebind(insertArticleQuery)

	var inserted, duplicates, failed int
	var critical error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		inserted, duplicates, failed = 0, 0, 0
		tx, err := c.BeginTxx(ctx, nil)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			critical = fmt.Errorf("begin transaction: %w", err)
			return nil
		}

		for i, a := range articles {
			savepoint := fmt.Sprintf("article_%d", i)
			if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
				_ = tx.Rollback()
				if isLockError(err) {
					return err
				}
				critical = fmt.Errorf("create savepoint: %w", err)
				return nil
			}

			key := a.Key()
			res, err := tx.ExecContext(ctx, query, string(a.SourceType), key.SourceURL, a.Title, a.Content, a.Link,
				key.Published, scraped)
			if err != nil {
				if isLockError(err) {
					_ = tx.Rollback()
					return err
				}
				lgr.Printf("[WARN] failed to insert article %q from %s: %v", a.Identifier(), key.SourceURL, err)
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
					_ = tx.Rollback()
					critical = fmt.Errorf("rollback to savepoint: %w", rbErr)
					return nil
				}
				failed++
				continue
			}
			if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
				_ = tx.Rollback()
				critical = fmt.Errorf("release savepoint: %w", err)
				return nil
			}

			if n, err := res.RowsAffected(); err == nil && n > 0 {
				inserted++
				continue
			}
			duplicates++
		}

		if err := tx.Commit(); err != nil {
			if isLockError(err) {
				return err // retry
			}
			critical = fmt.Errorf("commit articles: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert articles: %w", err)
	}
	if critical != nil {
		return 0, critical
	}

	lgr.Printf("[DEBUG] bulk insert: %d inserted, %d duplicates, %d failed of %d", inserted, duplicates, failed, len(articles))
	return inserted, nil
}

func toDomainArticles(rows []articleSQL) []domain.Article {
	res := make([]domain.Article, len(rows))
	for i, row := range rows {
		res[i] = toDomainArticle(&row)
	}
	return res
}

// toDomainArticle converts articleSQL to domain.Article
func toDomainArticle(row *articleSQL) domain.Article {
	return domain.Article{
		ID:         row.ID,
		SourceType: domain.SourceType(row.SourceType),
		SourceURL:  row.SourceURL,
		Title:      row.Title,
		Content:    row.Content,
		Link:       row.Link,
		Published:  domain.NormalizeTime(row.Published),
		Scraped:    domain.NormalizeTime(row.Scraped),
	}
}
