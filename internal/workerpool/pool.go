package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Submit once Shutdown has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// abandonAfter bounds how long Shutdown waits for workers after cancelling them.
const abandonAfter = 5 * time.Second

// Task is a unit of work. The context is cancelled when a shutdown is forced.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers. Submit blocks until a worker
// accepts the task, so at most Size tasks run at any time.
type Pool struct {
	size   int
	tasks  chan Task
	quit   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	// active counts tasks handed to Submit that have not finished.
	active atomic.Int32

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 10

// New starts a pool of size workers.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:   size,
		tasks:  make(chan Task),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			p.run(task)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) run(task Task) {
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	task(p.ctx)
}

// Submit hands task to an idle worker, blocking until one is free.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-p.quit:
		return ErrPoolStopped
	default:
	}

	p.active.Add(1)
	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		p.active.Add(-1)
		return ErrPoolStopped
	case <-ctx.Done():
		p.active.Add(-1)
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits up to grace for running tasks to
// finish. If they do not, their context is cancelled and forced is true.
// With a zero grace running tasks are cancelled immediately.
func (p *Pool) Shutdown(grace time.Duration) (forced bool) {
	p.stopOnce.Do(func() { close(p.quit) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		p.cancel()
		return false
	case <-timer.C:
	}

	forced = p.active.Load() > 0
	if forced {
		p.logger.Warn("grace period expired, cancelling in-flight tasks", zap.Duration("grace", grace))
	}
	p.cancel()

	select {
	case <-done:
	case <-time.After(abandonAfter):
		p.logger.Error("workers did not exit after cancellation, abandoning them")
	}
	return forced
}
