package memory

import (
	"context"
	"sync/atomic"

	"github.com/antigloss/go/concurrent/container/queue"

	"github.com/user/crawl-engine/internal/entity"
)

// QueueRepoImpl is an in-process, unbounded frontier backed by a lock-free queue.
type QueueRepoImpl struct {
	queue *queue.LockfreeQueue
	size  atomic.Int64
}

// NewQueueRepo creates an empty in-process frontier.
func NewQueueRepo() *QueueRepoImpl {
	return &QueueRepoImpl{queue: queue.NewLockfreeQueue()}
}

// Push appends urls to the queue.
// The size is raised before the items become visible so Size never under-reports.
func (r *QueueRepoImpl) Push(_ context.Context, urls ...entity.URL) error {
	r.size.Add(int64(len(urls)))
	for _, u := range urls {
		r.queue.Push(u)
	}
	return nil
}

// TryPop removes the oldest URL, if any.
func (r *QueueRepoImpl) TryPop(_ context.Context) (entity.URL, bool, error) {
	v := r.queue.Pop()
	if v == nil {
		return entity.URL{}, false, nil
	}
	r.size.Add(-1)
	return v.(entity.URL), true, nil
}

// Size returns the number of queued URLs.
func (r *QueueRepoImpl) Size(_ context.Context) (int64, error) {
	return r.size.Load(), nil
}
