package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/user/crawl-engine/internal/entity"
)

// CrawlDB stores fetched pages and failed URLs in a local SQLite file.
// It implements both ContentStore and FailedURLRepository.
type CrawlDB struct {
	db *sql.DB
}

// Open opens or creates the database at path and creates the schema.
func Open(path string) (*CrawlDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; workers serialize through a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db}
	if err := cdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (c *CrawlDB) Close() error {
	return c.db.Close()
}

func (c *CrawlDB) createTables(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pages (
			url              TEXT PRIMARY KEY,
			crawl_key        TEXT NOT NULL,
			depth            INTEGER NOT NULL,
			status_code      INTEGER NOT NULL,
			content_type     TEXT NOT NULL,
			body             BLOB,
			response_time_ms INTEGER NOT NULL,
			fetched_at       DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS failed_urls (
			url              TEXT PRIMARY KEY,
			failure_reason   TEXT NOT NULL,
			error_type       TEXT NOT NULL,
			http_status_code INTEGER NOT NULL,
			last_attempt_at  DATETIME NOT NULL,
			attempt_count    INTEGER NOT NULL DEFAULT 1
		);`)
	return err
}

// Store upserts a fetched page.
func (c *CrawlDB) Store(ctx context.Context, url entity.URL, content *entity.Content) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pages (url, crawl_key, depth, status_code, content_type, body, response_time_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			crawl_key = excluded.crawl_key,
			depth = excluded.depth,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			body = excluded.body,
			response_time_ms = excluded.response_time_ms,
			fetched_at = excluded.fetched_at`,
		url.Raw, string(url.Key), url.Depth, content.StatusCode, content.ContentType,
		content.Body, content.ResponseTimeMS, content.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store page %s: %w", url.Raw, err)
	}
	return nil
}

// SaveOrUpdate records a failed crawl attempt.
func (c *CrawlDB) SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO failed_urls (url, failure_reason, error_type, http_status_code, last_attempt_at, attempt_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (url) DO UPDATE SET
			failure_reason = excluded.failure_reason,
			error_type = excluded.error_type,
			http_status_code = excluded.http_status_code,
			last_attempt_at = excluded.last_attempt_at,
			attempt_count = failed_urls.attempt_count + 1`,
		failedURL.URL, failedURL.FailureReason, failedURL.ErrorType,
		failedURL.HTTPStatusCode, failedURL.LastAttemptTimestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record failed url %s: %w", failedURL.URL, err)
	}
	return nil
}

// PageCount returns the number of stored pages.
func (c *CrawlDB) PageCount(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n)
	return n, err
}

// LoadPage returns the stored body for url.
func (c *CrawlDB) LoadPage(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx, `SELECT body FROM pages WHERE url = ?`, url).Scan(&body)
	return body, err
}

// FailedAttempts returns how many times url has been recorded as failed.
func (c *CrawlDB) FailedAttempts(ctx context.Context, url string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT attempt_count FROM failed_urls WHERE url = ?`, url).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
