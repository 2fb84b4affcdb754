package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/pkg/utils"
)

const visitedURLPrefix = "crawler:visited:"

// VisitedRepoImpl provides a concrete implementation for the VisitedRepository interface using Redis.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a given crawl key by hashing it.
func (r *VisitedRepoImpl) generateKey(key entity.CrawlKey) string {
	return fmt.Sprintf("%s%s", visitedURLPrefix, utils.HashURL(string(key)))
}

// TryMarkVisited claims key with SETNX, which is atomic across every process sharing the Redis instance.
func (r *VisitedRepoImpl) TryMarkVisited(ctx context.Context, key entity.CrawlKey) (bool, error) {
	claimed, err := r.client.SetNX(ctx, r.generateKey(key), "1", 0).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}
