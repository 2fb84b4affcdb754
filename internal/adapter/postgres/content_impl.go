package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/crawl-engine/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS crawled_pages (
	id               BIGSERIAL PRIMARY KEY,
	url              TEXT UNIQUE NOT NULL,
	crawl_key        TEXT NOT NULL,
	depth            INTEGER NOT NULL,
	http_status_code INTEGER NOT NULL,
	content_type     TEXT NOT NULL,
	content          BYTEA,
	response_time_ms INTEGER NOT NULL,
	crawl_timestamp  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS failed_urls (
	id                     BIGSERIAL PRIMARY KEY,
	url                    TEXT UNIQUE NOT NULL,
	failure_reason         TEXT NOT NULL,
	error_type             TEXT NOT NULL,
	http_status_code       INTEGER NOT NULL,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL,
	attempt_count          INTEGER NOT NULL DEFAULT 1
);`

// EnsureSchema creates the tables used by the Postgres repositories.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// ContentRepoImpl provides a concrete implementation for the ContentStore interface using PostgreSQL.
type ContentRepoImpl struct {
	db *pgxpool.Pool
}

// NewContentRepo creates a new instance of ContentRepoImpl.
func NewContentRepo(db *pgxpool.Pool) *ContentRepoImpl {
	return &ContentRepoImpl{db: db}
}

// Store inserts or updates the fetched content for a URL.
func (r *ContentRepoImpl) Store(ctx context.Context, url entity.URL, content *entity.Content) error {
	query := `
		INSERT INTO crawled_pages (url, crawl_key, depth, http_status_code, content_type, content, response_time_ms, crawl_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO UPDATE SET
			crawl_key = EXCLUDED.crawl_key,
			depth = EXCLUDED.depth,
			http_status_code = EXCLUDED.http_status_code,
			content_type = EXCLUDED.content_type,
			content = EXCLUDED.content,
			response_time_ms = EXCLUDED.response_time_ms,
			crawl_timestamp = EXCLUDED.crawl_timestamp;
	`

	_, err := r.db.Exec(ctx, query,
		url.Raw,
		string(url.Key),
		url.Depth,
		content.StatusCode,
		content.ContentType,
		content.Body,
		content.ResponseTimeMS,
		content.FetchedAt,
	)
	return err
}
