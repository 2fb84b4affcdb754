package file

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/user/crawl-engine/internal/entity"
)

// ContentRepoImpl appends every fetched page to a single file.
type ContentRepoImpl struct {
	path string
	mu   sync.Mutex
}

// NewContentRepo creates a sink appending to path. The file is created on first write.
func NewContentRepo(path string) *ContentRepoImpl {
	return &ContentRepoImpl{path: path}
}

// Store appends content to the file, one record per page.
func (r *ContentRepoImpl) Store(ctx context.Context, url entity.URL, content *entity.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open content file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "==> %s\n", url.Raw); err != nil {
		return err
	}
	if _, err := f.Write(content.Body); err != nil {
		return err
	}
	_, err = f.WriteString("\n")
	return err
}
