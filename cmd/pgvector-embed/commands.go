package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/embeddings"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/ingest"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/search"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

func newFetcher(cfg *config.Config) (embeddings.Fetcher, error) {
	// A bad dimension only matters to the simple backend, which then uses its default.
	dim, _ := ingest.ParseDimension(cfg.Dimension)
	return embeddings.NewFetcher(cfg.EmbeddingBackend, cfg.EmbeddingURL, dim)
}

func writeCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	metric, err := store.ParseMetric(cfg.Metric)
	if err != nil {
		return err
	}

	pipeline, err := ingest.NewPipeline(fetcher, openConn(logger),
		ingest.WithPoolSize(cfg.PersistWorkers),
		ingest.WithMetric(metric),
		ingest.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	var metadata *string
	if c.IsSet("metadata") {
		m := c.String("metadata")
		metadata = &m
	}

	handle, err := pipeline.Run(c.Context, ingest.Params{
		Model:     cfg.EmbeddingModel,
		Inputs:    c.StringSlice("input"),
		Metadata:  metadata,
		Table:     cfg.Table,
		Dimension: cfg.Dimension,
		DB:        cfg.VectorDB,
	})
	if err != nil {
		return err
	}

	res := handle.Wait()
	if res.State == ingest.StateFailed {
		return fmt.Errorf("run %s failed during %s: %w", handle.ID, res.FailedStage, res.Err)
	}
	fmt.Fprintf(c.App.Writer, "run %s: wrote %d of %d rows to %s\n",
		handle.ID, res.Insert.Written, res.Insert.Attempted, handle.Table)
	return nil
}

func queryCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	metric, err := store.ParseMetric(cfg.Metric)
	if err != nil {
		return err
	}

	searcher := search.NewSearcher(fetcher, openConn(logger), metric, cfg.QueryLimit, logger)
	matches, err := searcher.Search(c.Context, search.Query{
		Model:  cfg.EmbeddingModel,
		Inputs: c.StringSlice("input"),
		Table:  cfg.Table,
		Limit:  c.Int("limit"),
		DB:     cfg.VectorDB,
	})
	if err != nil {
		return err
	}

	for _, m := range matches {
		for _, row := range m.Rows {
			fmt.Fprintf(c.App.Writer, "%g\t%s\n", row.Distance, row.Content)
		}
	}
	return nil
}

func versionCommand(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "pgvector-embed %s\n", config.Version)
	return nil
}
