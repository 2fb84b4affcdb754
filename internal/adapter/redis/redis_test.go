package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crawl-engine/internal/entity"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestVisitedRepo_TryMarkVisited(t *testing.T) {
	client, _ := newTestClient(t)
	repo := NewVisitedRepo(client)
	ctx := context.Background()

	claimed, err := repo.TryMarkVisited(ctx, "http://example.com/")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.TryMarkVisited(ctx, "http://example.com/")
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = repo.TryMarkVisited(ctx, "http://example.com/other")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestVisitedRepo_ServerDown(t *testing.T) {
	client, mr := newTestClient(t)
	repo := NewVisitedRepo(client)
	mr.Close()

	_, err := repo.TryMarkVisited(context.Background(), "http://example.com/")
	assert.Error(t, err)
}

func TestQueueRepo_PushPop(t *testing.T) {
	client, _ := newTestClient(t)
	q := NewQueueRepo(client)
	ctx := context.Background()

	_, ok, err := q.TryPop(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	a, err := entity.NewURL("http://a.test/", 0)
	require.NoError(t, err)
	b, err := entity.NewURL("http://b.test/x", 3)
	require.NoError(t, err)

	require.NoError(t, q.Push(ctx, a, b))
	require.NoError(t, q.Push(ctx))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	got, ok, err := q.TryPop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok, err = q.TryPop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, got, "depth must survive the round trip")
}

func TestQueueRepo_MalformedItem(t *testing.T) {
	client, mr := newTestClient(t)
	q := NewQueueRepo(client)

	_, err := mr.Lpush(crawlQueueKey, "not-json")
	require.NoError(t, err)

	_, _, err = q.TryPop(context.Background())
	assert.Error(t, err)
}
