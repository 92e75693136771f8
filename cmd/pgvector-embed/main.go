// Package main is the entry point for pgvector-embed.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

// openConn opens the per-run database connection. Tests replace it.
var openConn = store.OpenConn

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pgvector-embed",
		Usage:   "Embed text with an embedding service and store the vectors in pgvector",
		Version: config.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "write",
				Usage:  "Embed input texts and write them to a vector table",
				Action: writeCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "dim",
						Usage: "Vector dimension used when creating the table (default from config)",
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Opaque metadata sent with the embedding request",
					},
				),
			},
			{
				Name:   "query",
				Usage:  "Print the stored rows nearest to each input text",
				Action: queryCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Rows per input; negative uses the configured default",
						Value: -1,
					},
				),
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (default from config)",
					},
				},
			},
			{
				Name:   "version",
				Usage:  "Print the version",
				Action: versionCommand,
			},
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Text to embed; repeat for several",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Embedding model name (default from config)",
		},
		&cli.StringFlag{
			Name:  "table",
			Usage: "Vector table name (default from config)",
		},
		&cli.StringFlag{
			Name:  "embedding-url",
			Usage: "Embedding service endpoint (default from config)",
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

func setupLogger(c *cli.Context) error {
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig loads the process configuration and applies command flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.IsSet("model") {
		cfg.EmbeddingModel = c.String("model")
	}
	if c.IsSet("table") {
		cfg.Table = c.String("table")
	}
	if c.IsSet("embedding-url") {
		cfg.EmbeddingURL = c.String("embedding-url")
	}
	if c.IsSet("dim") {
		cfg.Dimension = c.String("dim")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	return cfg, nil
}
