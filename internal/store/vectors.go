package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/embeddings"
)

var (
	// ErrEmptyTable is returned when no table name was supplied.
	ErrEmptyTable = errors.New("table name is empty")
	// ErrTableNotFound is returned when querying a table that does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrInvalidMetric is returned for an unknown distance metric name.
	ErrInvalidMetric = errors.New("invalid distance metric")
)

// undefinedTable is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Metric selects the pgvector distance operator used for similarity queries.
type Metric string

const (
	MetricL2           Metric = "l2"
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "ip"
)

// ParseMetric maps a metric name to a Metric. Empty means l2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	case MetricInnerProduct:
		return MetricInnerProduct, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
	}
}

// Operator returns the pgvector operator; smaller results are always nearer.
func (m Metric) Operator() string {
	switch m {
	case MetricCosine:
		return "<=>"
	case MetricInnerProduct:
		return "<#>" // negative inner product
	default:
		return "<->"
	}
}

// SimilarRow is returned by nearest-neighbor queries.
type SimilarRow struct {
	ID       int64   `json:"id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// RowError records one failed row insert.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }
func (e RowError) Unwrap() error { return e.Err }

// InsertResult summarizes a best-effort batch insert.
type InsertResult struct {
	Attempted int
	Written   int
	Failed    int
	Errors    []RowError
}

// VectorStore owns all reads and writes against vector tables. Each method is
// self-contained; nothing spans a transaction across calls.
type VectorStore struct {
	db     DBTX
	metric Metric
	logger *slog.Logger
}

// NewVectorStore creates a store over db. A nil logger uses slog.Default().
func NewVectorStore(db DBTX, metric Metric, logger *slog.Logger) *VectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	if metric == "" {
		metric = MetricL2
	}
	return &VectorStore{db: db, metric: metric, logger: logger}
}

// EnsureTable creates table with an id primary key, a text column and a vector
// column of width dimension, unless a table with that name already exists. An
// existing table wins even when its vector width differs.
func (s *VectorStore) EnsureTable(ctx context.Context, table string, dimension int) error {
	if table == "" {
		return ErrEmptyTable
	}

	if _, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		s.logger.Warn("ensure vector extension", "error", err)
	}

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id        bigserial PRIMARY KEY,
			content   text NOT NULL,
			embedding vector(%d)
		)`, pgx.Identifier{table}.Sanitize(), dimension)

	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s (dimension %d): %w", table, dimension, err)
	}
	s.logger.Debug("table ready", "table", table, "dimension", dimension)
	return nil
}

// InsertRows writes (inputs[i], vectors[i]) for every i both sides cover. Each
// row is an independent statement: a failure is logged and recorded and the
// next row is still attempted.
func (s *VectorStore) InsertRows(ctx context.Context, table string, req embeddings.RequestView, vectors [][]float32) InsertResult {
	var result InsertResult

	n := min(req.Len(), len(vectors))
	if n != req.Len() || n != len(vectors) {
		s.logger.Warn("input and embedding counts differ, writing common prefix",
			"table", table, "inputs", req.Len(), "embeddings", len(vectors), "rows", n)
	}
	if n == 0 {
		return result
	}

	sql := fmt.Sprintf(`INSERT INTO %s (content, embedding) VALUES ($1, $2)`, pgx.Identifier{table}.Sanitize())

	for i := 0; i < n; i++ {
		result.Attempted++
		if _, err := s.db.Exec(ctx, sql, req.Input(i), pgvector.NewVector(vectors[i])); err != nil {
			s.logger.Error("insert row failed", "table", table, "row", i, "dimension", len(vectors[i]), "error", err)
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: i, Err: err})
			continue
		}
		result.Written++
	}

	s.logger.Info("rows written", "table", table, "written", result.Written, "failed", result.Failed)
	return result
}

// QuerySimilar returns up to limit rows ordered nearest first. When the table
// does not exist the error wraps ErrTableNotFound and the result is empty.
func (s *VectorStore) QuerySimilar(ctx context.Context, table string, query []float32, limit int) ([]SimilarRow, error) {
	result := []SimilarRow{}
	if table == "" {
		return result, ErrEmptyTable
	}
	if limit <= 0 {
		return result, nil
	}

	sql := fmt.Sprintf(`
		SELECT id, content, embedding %s $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`, s.metric.Operator(), pgx.Identifier{table}.Sanitize())

	rows, err := s.db.Query(ctx, sql, pgvector.NewVector(query), limit)
	if err != nil {
		return result, classify(table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r SimilarRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Distance); err != nil {
			return []SimilarRow{}, fmt.Errorf("scan similar: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return []SimilarRow{}, classify(table, err)
	}
	return result, nil
}

// Count returns the number of rows in table.
func (s *VectorStore) Count(ctx context.Context, table string) (int64, error) {
	if table == "" {
		return 0, ErrEmptyTable
	}
	var n int64
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{table}.Sanitize())).Scan(&n)
	if err != nil {
		return 0, classify(table, err)
	}
	return n, nil
}

func classify(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s: %w", ErrTableNotFound, table, err)
	}
	return fmt.Errorf("query %s: %w", table, err)
}
