package memory

import (
	"context"
	"sync"

	"github.com/user/crawl-engine/internal/entity"
)

// VisitedRepoImpl is an in-process VisitedRepository.
type VisitedRepoImpl struct {
	mu   sync.Mutex
	keys map[entity.CrawlKey]struct{}
}

// NewVisitedRepo creates an empty in-process visited set.
func NewVisitedRepo() *VisitedRepoImpl {
	return &VisitedRepoImpl{keys: make(map[entity.CrawlKey]struct{})}
}

// TryMarkVisited inserts key under the lock and reports whether it was absent.
func (r *VisitedRepoImpl) TryMarkVisited(_ context.Context, key entity.CrawlKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.keys[key]; seen {
		return false, nil
	}
	r.keys[key] = struct{}{}
	return true, nil
}

// Len returns the number of claimed keys.
func (r *VisitedRepoImpl) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
