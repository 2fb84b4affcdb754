package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/crawl-engine/internal/delivery/http/handler"
	"github.com/user/crawl-engine/internal/delivery/http/router"
	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/usecase"
	"github.com/user/crawl-engine/pkg/config"
	"github.com/user/crawl-engine/pkg/logger"
)

// NewRootCmd creates the crawler command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "crawler [start-url]",
		Short: "Concurrent web crawler",
		Long: `Crawls every page reachable from a start URL with a bounded pool of workers.
Each URL is fetched at most once. The crawl stops when no page is in flight and
the frontier is empty. Settings come from flags, environment variables or an env file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("start-url", args[0]); err != nil {
					return err
				}
			}

			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}

			log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := run(ctx, cfg, log)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(summary); encErr != nil {
					return errors.Join(err, encErr)
				}
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "env file to read settings from (default .env if present)")
	f.String("start-url", "", "URL to start crawling from")
	f.Int("crawl-workers", 10, "number of concurrent crawl workers")
	f.Duration("fetch-timeout", 5*time.Second, "timeout for a single fetch")
	f.Duration("shutdown-grace", 60*time.Second, "time running fetches get to finish before being cancelled")
	f.Int("max-depth", 0, "maximum link depth from the start URL (0 = unlimited)")
	f.Int("max-pages", 0, "maximum number of pages to crawl (0 = unlimited)")
	f.Bool("same-host-only", false, "only follow links on the same host, ignoring a leading www.")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "json", "log format (json, console)")
	f.String("server-port", "", "port for the status API, disabled when empty")
	f.String("frontier-backend", "memory", "frontier and visited set backend (memory, redis)")
	f.String("redis-addr", "localhost:6379", "address of Redis server")
	f.String("redis-password", "", "password of Redis server")
	f.Int("redis-db", 0, "Redis DB number")
	f.String("fetcher", "http", "page fetcher (http, chromedp)")
	f.String("user-agents", "", `user agents to rotate, separated by "|"`)
	f.StringSlice("proxy-urls", nil, "comma-separated list of proxies to rotate")
	f.Int64("max-body-bytes", 10<<20, "maximum response body size")
	f.String("store-backend", "none", "where fetched pages are saved (none, file, sqlite, postgres)")
	f.String("content-file", "saved_content.txt", "output file for the file store")
	f.String("sqlite-path", "crawl.db", "database path for the sqlite store")
	f.String("postgres-url", "", "connection string for the postgres store")

	return cmd
}

// run crawls until done and serves the status API alongside when configured.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (*entity.CrawlSummary, error) {
	comps, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := comps.close(); err != nil {
			log.Warn("failed to release resources", zap.Error(err))
		}
	}()

	coordinator, err := usecase.NewCoordinator(usecase.Config{
		StartURL:      cfg.StartURL,
		Workers:       cfg.CrawlWorkers,
		FetchTimeout:  cfg.FetchTimeout,
		ShutdownGrace: cfg.ShutdownGrace,
		MaxDepth:      cfg.MaxDepth,
		MaxPages:      cfg.MaxPages,
		SameHostOnly:  cfg.SameHostOnly,
	}, comps.deps)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	crawlDone := make(chan struct{})

	var summary *entity.CrawlSummary
	g.Go(func() error {
		defer close(crawlDone)
		var runErr error
		summary, runErr = coordinator.Run(gctx)
		return runErr
	})

	if cfg.ServerPort != "" {
		server := &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router.New(handler.NewHandler(coordinator, log), comps.deps.Metrics, comps.registry, log),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		g.Go(func() error {
			log.Info("starting status server", zap.String("port", cfg.ServerPort))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-crawlDone:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	return summary, err
}
