package repository

import (
	"context"

	"github.com/user/crawl-engine/internal/entity"
)

// FailedURLRepository records URLs that failed to be crawled.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error
}
