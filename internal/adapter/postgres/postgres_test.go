package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crawl-engine/internal/entity"
)

// newTestPool connects to POSTGRES_TEST_URL and skips when it is unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE crawled_pages, failed_urls")
	require.NoError(t, err)
	return pool
}

func TestContentRepo_StoreUpserts(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewContentRepo(pool)

	u, err := entity.NewURL("http://example.com/", 0)
	require.NoError(t, err)
	content := &entity.Content{URL: u.Raw, StatusCode: 200, ContentType: "text/html", Body: []byte("v1"), FetchedAt: time.Now()}
	require.NoError(t, repo.Store(ctx, u, content))

	content.Body = []byte("v2")
	require.NoError(t, repo.Store(ctx, u, content))

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM crawled_pages WHERE url = $1", u.Raw).Scan(&count))
	assert.Equal(t, 1, count)

	var body []byte
	require.NoError(t, pool.QueryRow(ctx, "SELECT content FROM crawled_pages WHERE url = $1", u.Raw).Scan(&body))
	assert.Equal(t, "v2", string(body))
}

func TestFailedURLRepo_CountsAttempts(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewFailedURLRepo(pool)

	failed := &entity.FailedURL{
		URL:                  "http://example.com/broken",
		FailureReason:        "fetch http://example.com/broken: status 500: Internal Server Error",
		ErrorType:            "status",
		HTTPStatusCode:       500,
		LastAttemptTimestamp: time.Now(),
	}
	require.NoError(t, repo.SaveOrUpdate(ctx, failed))
	require.NoError(t, repo.SaveOrUpdate(ctx, failed))

	var attempts int
	require.NoError(t, pool.QueryRow(ctx, "SELECT attempt_count FROM failed_urls WHERE url = $1", failed.URL).Scan(&attempts))
	assert.Equal(t, 2, attempts)
}
