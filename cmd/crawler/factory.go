package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/crawl-engine/internal/adapter/chromedp_crawler"
	"github.com/user/crawl-engine/internal/adapter/extractor"
	"github.com/user/crawl-engine/internal/adapter/file"
	"github.com/user/crawl-engine/internal/adapter/httpfetcher"
	"github.com/user/crawl-engine/internal/adapter/memory"
	"github.com/user/crawl-engine/internal/adapter/postgres"
	"github.com/user/crawl-engine/internal/adapter/proxy"
	redis_adapter "github.com/user/crawl-engine/internal/adapter/redis"
	"github.com/user/crawl-engine/internal/adapter/sqlite"
	"github.com/user/crawl-engine/internal/usecase"
	"github.com/user/crawl-engine/pkg/config"
	"github.com/user/crawl-engine/pkg/metrics"
)

// components holds everything a crawl needs, built from configuration.
type components struct {
	deps     usecase.Dependencies
	registry *prometheus.Registry
	closers  []func() error
}

func (c *components) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// buildComponents wires the frontier, visited set, fetcher and sinks selected by cfg.
// On error every resource opened so far is closed.
func buildComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *components, err error) {
	c := &components{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = c.close()
		}
	}()

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.deps.Metrics = metrics.New(c.registry)
	c.deps.Logger = logger
	c.deps.Extractor = extractor.New()

	// --- Frontier and visited set ---
	switch cfg.FrontierBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c.closers = append(c.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
		c.deps.Frontier = redis_adapter.NewQueueRepo(rdb)
		c.deps.Visited = redis_adapter.NewVisitedRepo(rdb)
	default:
		c.deps.Frontier = memory.NewQueueRepo()
		c.deps.Visited = memory.NewVisitedRepo()
	}

	// --- Fetcher ---
	manager, invalid := proxy.NewManager(cfg.ProxyURLs, cfg.UserAgentList(), time.Now().UnixNano())
	for _, p := range invalid {
		logger.Warn("ignoring invalid proxy", zap.String("proxy", p))
	}
	switch cfg.Fetcher {
	case "chromedp":
		browser := chromedp_crawler.NewChromedpCrawler(cfg.CrawlWorkers, manager, logger)
		c.closers = append(c.closers, func() error {
			browser.Close()
			return nil
		})
		c.deps.Fetcher = browser
	default:
		c.deps.Fetcher = httpfetcher.NewWebFetcher(manager, cfg.MaxBodyBytes)
	}

	// --- Persistence ---
	switch cfg.StoreBackend {
	case "file":
		c.deps.Store = file.NewContentRepo(cfg.ContentFile)
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		c.deps.Store = db
		c.deps.Failures = db
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		c.closers = append(c.closers, func() error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		logger.Info("PostgreSQL connection pool established")
		c.deps.Store = postgres.NewContentRepo(pool)
		c.deps.Failures = postgres.NewFailedURLRepo(pool)
	}

	logger.Info("components ready",
		zap.String("frontier", cfg.FrontierBackend),
		zap.String("fetcher", cfg.Fetcher),
		zap.String("store", cfg.StoreBackend),
	)
	return c, nil
}
