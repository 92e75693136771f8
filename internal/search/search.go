// Package search implements the read-only similarity lookup: embed each query
// text, then return the nearest stored rows for it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/embeddings"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

// Dialer opens the connection used by one search.
type Dialer func(ctx context.Context, cfg config.VectorDB) (store.Conn, error)

// Query is one search request. A negative Limit selects the default limit.
type Query struct {
	Model  string
	Inputs []string
	Table  string
	Limit  int
	DB     config.VectorDB
}

// Match holds the nearest rows for one query text.
type Match struct {
	Query string             `json:"query"`
	Rows  []store.SimilarRow `json:"rows"`
}

// Searcher runs similarity queries.
type Searcher struct {
	fetcher      embeddings.Fetcher
	dial         Dialer
	metric       store.Metric
	defaultLimit int
	logger       *slog.Logger
}

// NewSearcher creates a searcher. defaultLimit below 1 is treated as 1.
func NewSearcher(fetcher embeddings.Fetcher, dial Dialer, metric store.Metric, defaultLimit int, logger *slog.Logger) *Searcher {
	if defaultLimit < 1 {
		defaultLimit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		fetcher:      fetcher,
		dial:         dial,
		metric:       metric,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Search returns one Match per input, in input order. A missing table is
// logged and yields empty matches; embedding and connection failures are
// returned.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Match, error) {
	limit := q.Limit
	if limit < 0 {
		limit = s.defaultLimit
	}
	log := s.logger.With("table", q.Table)

	matches := make([]Match, len(q.Inputs))
	for i, in := range q.Inputs {
		matches[i] = Match{Query: in, Rows: []store.SimilarRow{}}
	}
	if len(q.Inputs) == 0 {
		return matches, nil
	}

	cell := embeddings.NewCell(q.Model, q.Inputs, nil)
	view, release, err := cell.View()
	if err != nil {
		return nil, err
	}
	resp, err := s.fetcher.Fetch(ctx, view)
	release()
	if err != nil {
		log.Error("embedding query texts failed", "backend", s.fetcher.Name(), "error", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if resp == nil {
		resp = embeddings.EmptyResponse()
	}
	if len(resp.Embeddings) != len(q.Inputs) {
		log.Warn("embedding count does not match query count", "queries", len(q.Inputs), "embeddings", len(resp.Embeddings))
	}

	conn, err := s.dial(ctx, q.DB)
	if err != nil {
		log.Error("failed to connect to vector db", "db", q.DB.String(), "error", err)
		return nil, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			log.Error("failed to close vector db connection", "error", err)
		}
	}()

	vs := store.NewVectorStore(conn, s.metric, s.logger)
	for i := range matches {
		if i >= len(resp.Embeddings) {
			break
		}
		rows, err := vs.QuerySimilar(ctx, q.Table, resp.Embeddings[i], limit)
		if errors.Is(err, store.ErrTableNotFound) {
			log.Error("table does not exist", "error", err)
			return matches, nil
		}
		if err != nil {
			return nil, err
		}
		matches[i].Rows = rows
		log.Debug("similarity query finished", "query", i, "rows", len(rows))
	}
	return matches, nil
}
