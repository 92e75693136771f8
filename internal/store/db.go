// Package store provides vector table access for pgvector-embed using pgx (PostgreSQL).
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
)

// DBTX abstracts pgx.Conn and pgx.Tx so store functions work in both contexts.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a single owned database connection.
type Conn interface {
	DBTX
	Close(ctx context.Context) error
}

var _ Conn = (*pgx.Conn)(nil)

// Open connects to the vector database described by cfg. Each ingestion run
// opens its own connection; there is no pool.
func Open(ctx context.Context, cfg config.VectorDB, logger *slog.Logger) (*pgx.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connCfg, err := pgx.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg, err)
	}

	// The vector type only exists once the extension is installed; until then
	// pgvector.Vector values are sent in text form.
	if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
		logger.Debug("pgvector types not registered", "db", cfg.String(), "error", err)
	}

	return conn, nil
}

// OpenConn is Open returning the Conn interface, for use as an ingest dialer.
func OpenConn(logger *slog.Logger) func(ctx context.Context, cfg config.VectorDB) (Conn, error) {
	return func(ctx context.Context, cfg config.VectorDB) (Conn, error) {
		conn, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
