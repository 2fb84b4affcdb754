package repository

import (
	"context"

	"github.com/user/crawl-engine/internal/entity"
)

// VisitedRepository is the set of claimed crawl keys.
type VisitedRepository interface {
	// TryMarkVisited inserts key if absent and reports whether this call inserted it.
	// A true result grants the caller the exclusive right to crawl key.
	TryMarkVisited(ctx context.Context, key entity.CrawlKey) (bool, error)
}
