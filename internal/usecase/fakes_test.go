package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
)

// graphFetcher serves a fixed link graph. Pages are plain text bodies listing
// their links, so the real extractor can be used.
type graphFetcher struct {
	pages map[string][]string
	fail  map[string]error
	delay map[string]time.Duration
	// hang makes a fetch run into its timeout.
	hang map[string]bool
	// stuck makes a fetch ignore its timeout and block until cancelled.
	stuck map[string]bool
	// linger makes a fetch wait until cancelled and then succeed anyway.
	linger map[string]bool

	mu    sync.Mutex
	calls map[string]int

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newGraphFetcher(pages map[string][]string) *graphFetcher {
	return &graphFetcher{
		pages: pages,
		fail:  map[string]error{},
		delay: map[string]time.Duration{},
		hang:  map[string]bool{},
		stuck:  map[string]bool{},
		linger: map[string]bool{},
		calls:  map[string]int{},
	}
}

func (f *graphFetcher) Fetch(ctx context.Context, url entity.URL, timeout time.Duration) (*entity.Content, error) {
	f.mu.Lock()
	f.calls[url.Raw]++
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		old := f.peak.Load()
		if n <= old || f.peak.CompareAndSwap(old, n) {
			break
		}
	}

	if f.stuck[url.Raw] {
		<-ctx.Done()
		return nil, &repository.FetchError{URL: url.Raw, Message: "cancelled", Err: ctx.Err()}
	}
	if f.linger[url.Raw] {
		<-ctx.Done()
	}
	if f.hang[url.Raw] {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		<-tctx.Done()
		if ctx.Err() != nil {
			return nil, &repository.FetchError{URL: url.Raw, Message: "cancelled", Err: ctx.Err()}
		}
		return nil, &repository.FetchError{URL: url.Raw, Message: "timed out", Err: errors.Join(repository.ErrFetchTimeout, tctx.Err())}
	}
	if d := f.delay[url.Raw]; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &repository.FetchError{URL: url.Raw, Message: "cancelled", Err: ctx.Err()}
		}
	}
	if err := f.fail[url.Raw]; err != nil {
		return nil, err
	}
	links, ok := f.pages[url.Raw]
	if !ok {
		return nil, &repository.FetchError{URL: url.Raw, Status: 404, Message: "Not Found", Err: repository.ErrNonSuccessStatus}
	}
	return &entity.Content{
		URL:         url.Raw,
		StatusCode:  200,
		ContentType: "text/plain",
		Body:        []byte(strings.Join(links, " ")),
		FetchedAt:   time.Now(),
	}, nil
}

func (f *graphFetcher) callCount(raw string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[raw]
}

func (f *graphFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *graphFetcher) maxCallsPerURL() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxCalls := 0
	for _, n := range f.calls {
		maxCalls = max(maxCalls, n)
	}
	return maxCalls
}

type memoryStore struct {
	mu     sync.Mutex
	stored []string
	err    error
}

func (s *memoryStore) Store(_ context.Context, url entity.URL, _ *entity.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, url.Raw)
	return s.err
}

type failureLog struct {
	mu       sync.Mutex
	recorded []entity.FailedURL
}

func (l *failureLog) SaveOrUpdate(_ context.Context, f *entity.FailedURL) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded = append(l.recorded, *f)
	return nil
}

// brokenFrontier accepts pushes but fails every read.
type brokenFrontier struct{}

func (brokenFrontier) Push(context.Context, ...entity.URL) error { return nil }

func (brokenFrontier) TryPop(context.Context) (entity.URL, bool, error) {
	return entity.URL{}, false, errors.New("connection refused")
}

func (brokenFrontier) Size(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}
