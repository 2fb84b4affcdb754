package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/crawl-engine/internal/entity"
)

const crawlQueueKey = "crawler:frontier"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds URLs to the left side of the Redis list in a single LPUSH.
func (r *QueueRepoImpl) Push(ctx context.Context, urls ...entity.URL) error {
	if len(urls) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(urls))
	for _, u := range urls {
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		values = append(values, payload)
	}
	return r.client.LPush(ctx, crawlQueueKey, values...).Err()
}

// TryPop removes and returns a URL from the right side of the Redis list.
// RPOP answers redis.Nil on an empty list, which is reported as ok == false.
func (r *QueueRepoImpl) TryPop(ctx context.Context) (entity.URL, bool, error) {
	payload, err := r.client.RPop(ctx, crawlQueueKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.URL{}, false, nil
		}
		return entity.URL{}, false, fmt.Errorf("failed to pop URL from frontier: %w", err)
	}

	var u entity.URL
	if err := json.Unmarshal(payload, &u); err != nil {
		return entity.URL{}, false, fmt.Errorf("malformed frontier item: %w", err)
	}
	return u, true, nil
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, crawlQueueKey).Result()
}
