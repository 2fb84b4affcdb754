package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/repository"
	"github.com/user/crawl-engine/pkg/utils"
)

// crawl fetches u, persists the content and pushes newly discovered links.
// Failures are recorded and never retried. A task whose context was cancelled
// pushes nothing.
func (c *Coordinator) crawl(ctx context.Context, u entity.URL) taskResult {
	startTime := time.Now()
	host := utils.HostWithoutWWW(u.Raw)

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout+fetchSlack)
	content, err := c.fetcher.Fetch(fetchCtx, u, c.cfg.FetchTimeout)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return c.cancelled(u, host, startTime)
		}
		return c.handleCrawlFailure(ctx, u, host, startTime, err)
	}

	if content.Truncated {
		c.logger.Warn("content truncated at size limit", zap.String("url", u.Raw), zap.Int("bytes", len(content.Body)))
	}

	links, err := c.extractor.ExtractLinks(content)
	if err != nil {
		c.logger.Warn("link extraction failed", zap.String("url", u.Raw), zap.Error(err))
		links = nil
	}

	if c.store != nil {
		if err := c.store.Store(ctx, u, content); err != nil {
			c.logger.Warn("failed to store content", zap.String("url", u.Raw), zap.Error(err))
		}
	}

	next := c.followable(u, links)
	if ctx.Err() != nil {
		return c.cancelled(u, host, startTime)
	}
	if len(next) > 0 {
		if err := c.frontier.Push(ctx, next...); err != nil {
			c.logger.Error("failed to enqueue discovered links",
				zap.String("url", u.Raw), zap.Int("links", len(next)), zap.Error(err))
			next = nil
		}
	}

	duration := time.Since(startTime)
	c.metrics.ObserveCrawl("success", "", host, duration)
	c.metrics.AddDiscovered(len(next))
	c.logger.Info("crawled",
		zap.String("url", u.Raw),
		zap.Int("depth", u.Depth),
		zap.Int("status", content.StatusCode),
		zap.Int("bytes", len(content.Body)),
		zap.Int("links", len(next)),
		zap.Int64("duration_ms", duration.Milliseconds()),
	)
	return taskResult{outcome: outcomeSucceeded, discovered: len(next)}
}

func (c *Coordinator) handleCrawlFailure(ctx context.Context, u entity.URL, host string, startTime time.Time, crawlErr error) taskResult {
	errorType := repository.ErrorType(crawlErr)
	failure := &entity.FailedURL{
		URL:                  u.Raw,
		FailureReason:        crawlErr.Error(),
		ErrorType:            errorType,
		LastAttemptTimestamp: time.Now(),
	}
	var fetchErr *repository.FetchError
	if errors.As(crawlErr, &fetchErr) {
		failure.HTTPStatusCode = fetchErr.Status
	}

	duration := time.Since(startTime)
	c.metrics.ObserveCrawl("failure", errorType, host, duration)
	c.logger.Warn("crawl failed",
		zap.String("url", u.Raw),
		zap.Int("depth", u.Depth),
		zap.String("error_type", errorType),
		zap.Int("status", failure.HTTPStatusCode),
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Error(crawlErr),
	)

	if c.failures != nil {
		if err := c.failures.SaveOrUpdate(ctx, failure); err != nil {
			c.logger.Error("failed to record failed URL", zap.String("url", u.Raw), zap.Error(err))
		}
	}
	return taskResult{outcome: outcomeFailed, failure: failure}
}

func (c *Coordinator) cancelled(u entity.URL, host string, startTime time.Time) taskResult {
	duration := time.Since(startTime)
	c.metrics.ObserveCrawl("cancelled", "", host, duration)
	c.logger.Warn("crawl cancelled", zap.String("url", u.Raw), zap.Int64("duration_ms", duration.Milliseconds()))
	return taskResult{outcome: outcomeCancelled}
}

// followable normalizes links found on parent and keeps those within the depth
// limit and host scope, once each.
func (c *Coordinator) followable(parent entity.URL, links []string) []entity.URL {
	depth := parent.Depth + 1
	if c.cfg.MaxDepth > 0 && depth > c.cfg.MaxDepth {
		return nil
	}

	parentHost := utils.HostWithoutWWW(parent.Raw)
	seen := make(map[entity.CrawlKey]struct{}, len(links))
	var out []entity.URL
	for _, link := range links {
		u, err := entity.NewURL(link, depth)
		if err != nil || u.Key == parent.Key {
			continue
		}
		if c.cfg.SameHostOnly && utils.HostWithoutWWW(u.Raw) != parentHost {
			continue
		}
		if _, dup := seen[u.Key]; dup {
			continue
		}
		seen[u.Key] = struct{}{}
		out = append(out, u)
	}
	return out
}
