package chromedp_crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/crawl-engine/internal/adapter/proxy"
	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
)

// ChromedpCrawler renders pages in headless Chrome before handing back the DOM.
type ChromedpCrawler struct {
	allocatorPool *sync.Pool
	cancels       []context.CancelFunc
	mu            sync.Mutex
	logger        *zap.Logger
}

// NewChromedpCrawler creates a new fetcher implementation using chromedp.
func NewChromedpCrawler(maxConcurrency int, manager *proxy.Manager, logger *zap.Logger) *ChromedpCrawler {
	c := &ChromedpCrawler{logger: logger}
	c.allocatorPool = &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(manager.GetUserAgent()),
			)
			if p := manager.GetProxy(); p != nil {
				opts = append(opts, chromedp.ProxyServer(p.String()))
			}
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
			c.mu.Lock()
			c.cancels = append(c.cancels, cancel)
			c.mu.Unlock()
			return allocCtx
		},
	}

	// Pre-warm the pool
	for i := 0; i < maxConcurrency; i++ {
		allocCtx := c.allocatorPool.Get().(context.Context)
		c.allocatorPool.Put(allocCtx)
	}
	return c
}

// Fetch navigates to url and returns the rendered HTML.
func (c *ChromedpCrawler) Fetch(ctx context.Context, url entity.URL, timeout time.Duration) (*entity.Content, error) {
	allocCtx := c.allocatorPool.Get().(context.Context)
	defer c.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(c.logger.Sugar().Debugf))
	defer cancel()

	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		taskCtx, cancelTimeout = context.WithTimeout(taskCtx, timeout)
		defer cancelTimeout()
	}

	// Tie the browser tab to the caller so shutdown interrupts navigation.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	headers := network.Headers{"Accept-Language": "en-US,en;q=0.9"}
	if err := chromedp.Run(taskCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
		return nil, c.failure(ctx, taskCtx, url, 0, err)
	}

	resp, err := chromedp.RunResponse(taskCtx, chromedp.Navigate(url.Raw))
	if err != nil {
		return nil, c.failure(ctx, taskCtx, url, 0, err)
	}

	status := 0
	contentType := "text/html"
	if resp != nil {
		status = int(resp.Status)
		if resp.MimeType != "" {
			contentType = resp.MimeType
		}
	}
	if status != 0 && (status < 200 || status > 299) {
		return nil, &repository.FetchError{
			URL:     url.Raw,
			Status:  status,
			Message: resp.StatusText,
			Err:     repository.ErrNonSuccessStatus,
		}
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, c.failure(ctx, taskCtx, url, status, err)
	}

	c.logger.Debug("rendered page", zap.String("url", url.Raw), zap.Int("status", status))

	return &entity.Content{
		URL:            url.Raw,
		StatusCode:     status,
		ContentType:    contentType,
		Body:           []byte(html),
		FetchedAt:      time.Now(),
		ResponseTimeMS: int(time.Since(start).Milliseconds()),
	}, nil
}

func (c *ChromedpCrawler) failure(ctx, taskCtx context.Context, url entity.URL, status int, err error) error {
	switch {
	case ctx.Err() != nil:
		return &repository.FetchError{URL: url.Raw, Status: status, Message: "navigation cancelled", Err: ctx.Err()}
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		return &repository.FetchError{URL: url.Raw, Status: status, Message: "page load timed out", Err: errors.Join(repository.ErrFetchTimeout, err)}
	default:
		return &repository.FetchError{URL: url.Raw, Status: status, Message: err.Error(), Err: errors.Join(repository.ErrNavigationFailed, err)}
	}
}

// Close shuts down every browser allocator the fetcher started.
func (c *ChromedpCrawler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}
