package repository

import (
	"context"

	"github.com/user/crawl-engine/internal/entity"
)

// QueueRepository is the crawl frontier: an unbounded FIFO of URLs awaiting dispatch.
// Implementations must be safe for concurrent use.
type QueueRepository interface {
	// Push adds urls to the end of the queue without blocking on capacity.
	Push(ctx context.Context, urls ...entity.URL) error
	// TryPop removes the URL at the front of the queue. ok is false when the queue is empty.
	TryPop(ctx context.Context) (url entity.URL, ok bool, err error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
