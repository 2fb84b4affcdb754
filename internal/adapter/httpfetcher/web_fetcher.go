package httpfetcher

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/user/crawl-engine/internal/adapter/proxy"
	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
)

const defaultMaxBodySize = 10 * 1024 * 1024

// WebFetcher performs plain HTTP GETs.
type WebFetcher struct {
	client      *http.Client
	manager     *proxy.Manager
	maxBodySize int64
}

// NewWebFetcher creates a fetcher that takes proxies and user agents from manager.
func NewWebFetcher(manager *proxy.Manager, maxBodySize int64) *WebFetcher {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	transport := &http.Transport{
		Proxy:               manager.ProxyFunc,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &WebFetcher{
		client:      &http.Client{Transport: transport},
		manager:     manager,
		maxBodySize: maxBodySize,
	}
}

// Fetch GETs url. Only 2xx responses count as content.
func (f *WebFetcher) Fetch(ctx context.Context, url entity.URL, timeout time.Duration) (*entity.Content, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.Raw, http.NoBody)
	if err != nil {
		return nil, &repository.FetchError{URL: url.Raw, Message: err.Error(), Err: errors.Join(repository.ErrNavigationFailed, err)}
	}
	req.Header.Set("User-Agent", f.manager.GetUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(url.Raw, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &repository.FetchError{
			URL:     url.Raw,
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
			Err:     repository.ErrNonSuccessStatus,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, classify(url.Raw, resp.StatusCode, err)
	}
	truncated := int64(len(body)) > f.maxBodySize
	if truncated {
		body = body[:f.maxBodySize]
	}

	return &entity.Content{
		URL:            url.Raw,
		StatusCode:     resp.StatusCode,
		ContentType:    resp.Header.Get("Content-Type"),
		Body:           body,
		FetchedAt:      time.Now(),
		ResponseTimeMS: int(time.Since(start).Milliseconds()),
		Truncated:      truncated,
	}, nil
}

// classify maps transport errors onto the fetch error taxonomy.
// Cancellation by the caller is kept distinguishable from a timeout.
func classify(rawURL string, status int, err error) *repository.FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &repository.FetchError{URL: rawURL, Status: status, Message: "request timed out", Err: errors.Join(repository.ErrFetchTimeout, err)}
	case errors.Is(err, context.Canceled):
		return &repository.FetchError{URL: rawURL, Status: status, Message: "request cancelled", Err: err}
	default:
		return &repository.FetchError{URL: rawURL, Status: status, Message: err.Error(), Err: errors.Join(repository.ErrNavigationFailed, err)}
	}
}
