package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crawl-engine/internal/entity"
)

func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "crawl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCrawlDB_Store(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := entity.NewURL("http://example.com/page", 1)
	require.NoError(t, err)

	content := &entity.Content{
		URL:         u.Raw,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte("<html>v1</html>"),
		FetchedAt:   time.Now(),
	}
	require.NoError(t, db.Store(ctx, u, content))

	content.Body = []byte("<html>v2</html>")
	require.NoError(t, db.Store(ctx, u, content))

	n, err := db.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "storing the same URL twice should upsert")

	body, err := db.LoadPage(ctx, u.Raw)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(body))
}

func TestCrawlDB_SaveOrUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	failed := &entity.FailedURL{
		URL:                  "http://example.com/missing",
		FailureReason:        "status 404",
		ErrorType:            "status",
		HTTPStatusCode:       404,
		LastAttemptTimestamp: time.Now(),
	}
	require.NoError(t, db.SaveOrUpdate(ctx, failed))
	require.NoError(t, db.SaveOrUpdate(ctx, failed))

	n, err := db.FailedAttempts(ctx, failed.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.FailedAttempts(ctx, "http://example.com/never")
	require.NoError(t, err)
	assert.Zero(t, n)
}
