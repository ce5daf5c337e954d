package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/article-search/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup("searcher", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"articles", cfg.Articles.Driver,
		"snapshot_backend", cfg.Snapshot.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	articles, err := article.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening article store: %w", err)
	}
	defer articles.Close()

	records, err := snapshot.Open(ctx, cfg, m)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer records.Close()

	idx := indexer.New(cfg.Index, articles, records, m)

	// The index only touches the snapshot store on load and save, so an
	// unreachable store degrades readiness instead of failing it.
	checker := health.NewChecker(cfg.Snapshot.Timeout)
	checker.Register("index", true, health.Ready(idx.Ready, "index loading"))
	checker.Register("articles", true, articles.Ping)
	if p, ok := records.(snapshot.Pinger); ok {
		checker.Register("snapshots", false, p.Ping)
	}

	h := handler.New(idx, articles, cfg.Server.DefaultLimit, cfg.Server.MaxResults)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(h, checker, m, router.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	// The listener comes up before the index is loaded; /health/ready
	// reports 503 until Create returns.
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		h.Wait()
		return nil
	})

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer).Run(ctx)
		})
	}

	g.Go(func() error {
		if err := idx.Create(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("creating search index: %w", err)
		}
		slog.Info("search index ready", "documents", idx.Stats().Documents)

		if cfg.Kafka.Enabled {
			events := consumer.New(cfg.Kafka, idx, articles)
			g.Go(func() error {
				return events.Run(ctx)
			})
			slog.Info("consuming article events",
				"topic", cfg.Kafka.Topics.ArticleEvents,
				"group", cfg.Kafka.ConsumerGroup,
			)
		}

		idx.RunFlushLoop(ctx, cfg.Index.FlushInterval)
		return nil
	})

	return g.Wait()
}
