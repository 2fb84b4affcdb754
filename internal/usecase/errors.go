package usecase

import "errors"

var (
	// ErrNoProgress is returned by Run when the frontier backend keeps failing
	// or the seed cannot be enqueued.
	ErrNoProgress = errors.New("crawl cannot make progress")

	// ErrCrawlStopped is returned by Seed once the crawl is quiescing or stopped.
	ErrCrawlStopped = errors.New("crawl already stopped")

	ErrInvalidConfig  = errors.New("invalid crawl configuration")
	ErrInvalidSeed    = errors.New("invalid seed URL")
	ErrAlreadyStarted = errors.New("crawl already started")
)
