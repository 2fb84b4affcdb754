package repository

import (
	"context"
	"time"

	"github.com/user/crawl-engine/internal/entity"
)

// Fetcher defines the contract for retrieving a page.
type Fetcher interface {
	// Fetch retrieves url, giving up after timeout. Any failure is returned as a *FetchError.
	Fetch(ctx context.Context, url entity.URL, timeout time.Duration) (*entity.Content, error)
}

// LinkExtractor turns fetched content into candidate URLs.
// The result may contain duplicates and already visited URLs.
type LinkExtractor interface {
	ExtractLinks(content *entity.Content) ([]string, error)
}
