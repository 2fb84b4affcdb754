package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
	"github.com/user/crawl-engine/internal/workerpool"
	"github.com/user/crawl-engine/pkg/metrics"
)

const (
	defaultWorkers      = 10
	defaultFetchTimeout = 5 * time.Second

	// fetchSlack is added to the fetch timeout for the task's own deadline.
	fetchSlack = 2 * time.Second

	maxFrontierFailures = 5
	pollInterval        = 100 * time.Millisecond
)

// Config controls a single crawl.
type Config struct {
	StartURL      string
	Workers       int
	FetchTimeout  time.Duration
	ShutdownGrace time.Duration
	MaxDepth      int // 0 means unlimited
	MaxPages      int // 0 means unlimited
	SameHostOnly  bool
}

// Dependencies are the collaborators of a Coordinator. Store and Failures are optional.
type Dependencies struct {
	Frontier  repository.QueueRepository
	Visited   repository.VisitedRepository
	Fetcher   repository.Fetcher
	Extractor repository.LinkExtractor
	Store     repository.ContentStore
	Failures  repository.FailedURLRepository
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Coordinator drives a crawl from its start URL until no more work can arrive.
// It pops URLs from the frontier, claims them in the visited set and submits
// each claimed URL to a bounded worker pool exactly once.
type Coordinator struct {
	cfg   Config
	start entity.URL

	frontier  repository.QueueRepository
	visited   repository.VisitedRepository
	fetcher   repository.Fetcher
	extractor repository.LinkExtractor
	store     repository.ContentStore
	failures  repository.FailedURLRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger

	state   *poolState
	started atomic.Bool

	frontierBackoff time.Duration
}

// NewCoordinator validates cfg and builds a Coordinator.
// Zero Workers and FetchTimeout take their defaults. A zero ShutdownGrace
// cancels running tasks as soon as the crawl stops.
func NewCoordinator(cfg Config, deps Dependencies) (*Coordinator, error) {
	if cfg.Workers == 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	var errs []error
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", cfg.Workers))
	}
	if cfg.FetchTimeout < 0 || cfg.ShutdownGrace < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if cfg.MaxDepth < 0 || cfg.MaxPages < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	start, err := entity.NewURL(cfg.StartURL, 0)
	if err != nil {
		errs = append(errs, fmt.Errorf("start URL %q: %w", cfg.StartURL, err))
	}
	if deps.Frontier == nil || deps.Visited == nil || deps.Fetcher == nil || deps.Extractor == nil {
		errs = append(errs, errors.New("frontier, visited set, fetcher and extractor are required"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		cfg:             cfg,
		start:           start,
		frontier:        deps.Frontier,
		visited:         deps.Visited,
		fetcher:         deps.Fetcher,
		extractor:       deps.Extractor,
		store:           deps.Store,
		failures:        deps.Failures,
		metrics:         deps.Metrics,
		logger:          logger,
		state:           newPoolState(deps.Metrics),
		frontierBackoff: 200 * time.Millisecond,
	}, nil
}

// Run crawls until the frontier is empty and no task is outstanding, the page
// limit is reached, or ctx is cancelled. It then stops the pool, giving running
// tasks the shutdown grace period before cancelling them. The summary is
// returned even when the error is non-nil.
func (c *Coordinator) Run(ctx context.Context) (*entity.CrawlSummary, error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	c.state.start(time.Now())
	c.logger.Info("crawl started",
		zap.String("start_url", c.start.Raw),
		zap.Int("workers", c.cfg.Workers),
		zap.Duration("fetch_timeout", c.cfg.FetchTimeout),
	)

	if err := c.frontier.Push(ctx, c.start); err != nil {
		c.state.stop(false, time.Now())
		summary := c.Snapshot()
		return &summary, fmt.Errorf("%w: enqueue seed: %w", ErrNoProgress, err)
	}
	c.state.setState(StateDraining)

	pool := workerpool.New(c.cfg.Workers, c.logger)
	runErr := c.drain(ctx, pool)

	forced := pool.Shutdown(c.cfg.ShutdownGrace)
	c.state.stop(forced, time.Now())

	summary := c.Snapshot()
	fields := []zap.Field{
		zap.Int("visited", summary.Visited),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("cancelled", summary.Cancelled),
		zap.Int("duplicates", summary.Duplicates),
		zap.Bool("forced", summary.Forced),
	}
	if runErr != nil {
		c.logger.Error("crawl aborted", append(fields, zap.Error(runErr))...)
	} else {
		c.logger.Info("crawl finished", fields...)
	}
	return &summary, runErr
}

// drain dispatches frontier URLs until the crawl reaches a fixed point.
// Whatever the reason it returns, the crawl no longer accepts seeds.
func (c *Coordinator) drain(ctx context.Context, pool *workerpool.Pool) error {
	defer c.state.setState(StateQuiescing)

	failures := 0
	for {
		if ctx.Err() != nil {
			c.logger.Warn("crawl interrupted", zap.Error(ctx.Err()))
			return nil
		}
		if c.cfg.MaxPages > 0 && c.state.visitedCount() >= c.cfg.MaxPages {
			c.logger.Info("page limit reached", zap.Int("max_pages", c.cfg.MaxPages))
			return nil
		}

		u, ok, err := c.frontier.TryPop(ctx)
		if err == nil && !ok {
			var idle bool
			idle, err = c.state.quiesceIfIdle(ctx, c.frontier)
			if err == nil && idle {
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			c.logger.Error("frontier unavailable", zap.Int("attempt", failures), zap.Error(err))
			if failures >= maxFrontierFailures {
				return fmt.Errorf("%w: frontier: %w", ErrNoProgress, err)
			}
			c.wait(ctx, time.Duration(failures)*c.frontierBackoff)
			continue
		}
		failures = 0

		if !ok {
			c.wait(ctx, pollInterval)
			continue
		}
		if err := c.dispatch(ctx, pool, u); err != nil {
			c.logger.Warn("dispatch stopped", zap.String("url", u.Raw), zap.Error(err))
			return nil
		}
	}
}

// dispatch claims u and submits it to the pool when the claim succeeds.
// A non-nil error means the pool no longer accepts work.
func (c *Coordinator) dispatch(ctx context.Context, pool *workerpool.Pool, u entity.URL) error {
	owned, err := c.visited.TryMarkVisited(ctx, u.Key)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("claim failed", zap.String("url", u.Raw), zap.Error(err))
		c.state.recordFailure(entity.FailedURL{
			URL:                  u.Raw,
			FailureReason:        err.Error(),
			ErrorType:            "claim",
			LastAttemptTimestamp: time.Now(),
		})
		return nil
	}
	if !owned {
		c.state.duplicate()
		c.metrics.IncDuplicate()
		return nil
	}

	c.state.dispatched()
	err = pool.Submit(ctx, func(taskCtx context.Context) {
		// A panicking task still completes, as a failure.
		res := taskResult{outcome: outcomeFailed}
		defer func() { c.state.finished(res) }()
		res = c.crawl(taskCtx, u)
	})
	if err != nil {
		c.state.finished(taskResult{outcome: outcomeCancelled})
		return err
	}
	return nil
}

func (c *Coordinator) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.state.changed:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Seed adds raw to the frontier of a running crawl at depth 0.
func (c *Coordinator) Seed(ctx context.Context, raw string) error {
	u, err := entity.NewURL(raw, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if err := c.state.pushIfOpen(ctx, c.frontier, u); err != nil {
		return err
	}
	c.logger.Info("seed added", zap.String("url", u.Raw))
	return nil
}

// Snapshot returns the live crawl summary.
func (c *Coordinator) Snapshot() entity.CrawlSummary {
	return c.state.summary(c.start.Raw)
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return c.state.current()
}
