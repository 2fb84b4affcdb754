package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
	"github.com/user/crawl-engine/pkg/metrics"
)

// State is the coordinator lifecycle state.
type State int

const (
	StateSeeded State = iota
	StateDraining
	StateQuiescing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateDraining:
		return "draining"
	case StateQuiescing:
		return "quiescing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeCancelled
)

type taskResult struct {
	outcome    outcome
	discovered int
	failure    *entity.FailedURL
}

// poolState is shared between the coordinator and its tasks. The quiescence
// check and task completion both run under mu, and a task pushes its links
// before completing, so an idle verdict can never miss pending work.
type poolState struct {
	mu      sync.Mutex
	metrics *metrics.Metrics

	state       State
	outstanding int

	visited    int
	succeeded  int
	failed     int
	cancelled  int
	duplicates int
	discovered int
	forced     bool
	failures   []entity.FailedURL

	startedAt  time.Time
	finishedAt *time.Time

	// changed wakes the coordinator after a completion or a new seed.
	changed chan struct{}
}

func newPoolState(m *metrics.Metrics) *poolState {
	return &poolState{
		metrics: m,
		state:   StateSeeded,
		changed: make(chan struct{}, 1),
	}
}

func (s *poolState) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *poolState) start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = now
}

func (s *poolState) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state > s.state {
		s.state = state
	}
}

func (s *poolState) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *poolState) stop(forced bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateStopped
	s.forced = forced
	s.finishedAt = &now
}

func (s *poolState) dispatched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding++
	s.visited++
	s.metrics.SetInFlight(s.outstanding)
}

func (s *poolState) finished(res taskResult) {
	s.mu.Lock()
	s.outstanding--
	switch res.outcome {
	case outcomeSucceeded:
		s.succeeded++
	case outcomeFailed:
		s.failed++
	case outcomeCancelled:
		s.cancelled++
	}
	s.discovered += res.discovered
	if res.failure != nil {
		s.failures = append(s.failures, *res.failure)
	}
	s.metrics.SetInFlight(s.outstanding)
	s.mu.Unlock()

	s.notify()
}

func (s *poolState) duplicate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duplicates++
}

func (s *poolState) recordFailure(f entity.FailedURL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failures = append(s.failures, f)
}

func (s *poolState) visitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visited
}

// quiesceIfIdle moves to StateQuiescing when no task is outstanding and the
// frontier is empty.
func (s *poolState) quiesceIfIdle(ctx context.Context, frontier repository.QueueRepository) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outstanding > 0 {
		return false, nil
	}
	size, err := frontier.Size(ctx)
	if err != nil {
		return false, err
	}
	s.metrics.SetFrontierSize(size)
	if size > 0 {
		return false, nil
	}
	if s.state < StateQuiescing {
		s.state = StateQuiescing
	}
	return true, nil
}

// pushIfOpen enqueues urls unless the crawl is already winding down.
func (s *poolState) pushIfOpen(ctx context.Context, frontier repository.QueueRepository, urls ...entity.URL) error {
	s.mu.Lock()
	if s.state >= StateQuiescing {
		s.mu.Unlock()
		return ErrCrawlStopped
	}
	err := frontier.Push(ctx, urls...)
	s.mu.Unlock()

	if err == nil {
		s.notify()
	}
	return err
}

func (s *poolState) summary(startURL string) entity.CrawlSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := entity.CrawlSummary{
		StartURL:   startURL,
		State:      s.state.String(),
		Visited:    s.visited,
		Succeeded:  s.succeeded,
		Failed:     s.failed,
		Cancelled:  s.cancelled,
		Duplicates: s.duplicates,
		Discovered: s.discovered,
		InFlight:   s.outstanding,
		Forced:     s.forced,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
	if len(s.failures) > 0 {
		summary.Failures = append([]entity.FailedURL(nil), s.failures...)
	}
	return summary
}
