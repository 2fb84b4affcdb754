package repository

import (
	"context"

	"github.com/user/crawl-engine/internal/entity"
)

// ContentStore defines the persistence sink for fetched pages.
type ContentStore interface {
	// Store saves content fetched from url. Callers treat errors as best-effort.
	Store(ctx context.Context, url entity.URL, content *entity.Content) error
}
