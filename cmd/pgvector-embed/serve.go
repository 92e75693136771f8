package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/events"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/ingest"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/search"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/server"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// The server logs JSON to stdout; the global flag only picks the level.
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	logger.Info("embedding backend initialized", "backend", fetcher.Name())

	metric, err := store.ParseMetric(cfg.Metric)
	if err != nil {
		return err
	}

	opts := []ingest.Option{
		ingest.WithPoolSize(cfg.PersistWorkers),
		ingest.WithMetric(metric),
		ingest.WithLogger(logger),
	}

	// NATS is optional; the service works without it
	var deps server.Deps
	if cfg.NatsURL != "" {
		client, err := events.Connect(cfg.NatsURL, logger)
		if err != nil {
			logger.Warn("failed to connect to NATS, running without events", "error", err)
		} else {
			defer client.Close()
			logger.Info("connected to NATS", "url", cfg.NatsURL)
			opts = append(opts, ingest.WithNotifier(events.NewPublisher(client, logger)))
			deps.Nats = client
		}
	}

	pipeline, err := ingest.NewPipeline(fetcher, openConn(logger), opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	deps.Runner = pipeline
	deps.Searcher = search.NewSearcher(fetcher, openConn(logger), metric, cfg.QueryLimit, logger)
	deps.Backend = fetcher.Name()
	srv := server.New(cfg, deps, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("pgvector-embed starting", "port", cfg.Port, "db", cfg.VectorDB.String())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("waiting for persistence units", "running", pipeline.Running())
	return nil
}
