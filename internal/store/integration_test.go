package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/embeddings"
)

// TestIntegration_RoundTrip needs a PostgreSQL server with the pgvector extension
// available, e.g. PGVECTOR_EMBED_TEST_DATABASE_URL=postgres://postgres@localhost/vectordb.
func TestIntegration_RoundTrip(t *testing.T) {
	url := os.Getenv("PGVECTOR_EMBED_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PGVECTOR_EMBED_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	defer conn.Close(ctx)

	table := fmt.Sprintf("it_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pgx.Identifier{table}.Sanitize()))
	})

	s := NewVectorStore(conn, MetricL2, nil)
	require.NoError(t, s.EnsureTable(ctx, table, 64))
	require.NoError(t, s.EnsureTable(ctx, table, 64), "second ensure must be a no-op")
	_ = pgxvec.RegisterTypes(ctx, conn)

	inputs := []string{"dog barks", "cat purrs", "bird sings at dawn"}
	fetcher := embeddings.NewSimpleProvider(64)
	v, release, err := embeddings.NewCell("simple", inputs, nil).View()
	require.NoError(t, err)
	defer release()

	resp, err := fetcher.Fetch(ctx, v)
	require.NoError(t, err)

	// one malformed vector among the batch
	vectors := append([][]float32{}, resp.Embeddings...)
	vectors[1] = vectors[1][:10]

	res := s.InsertRows(ctx, table, v, vectors)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Failed)

	n, err := s.Count(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := s.QuerySimilar(ctx, table, resp.Embeddings[0], 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "dog barks", rows[0].Content)

	rows, err = s.QuerySimilar(ctx, table, resp.Embeddings[0], 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), 10)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].Distance, rows[i].Distance)
	}

	_, err = s.QuerySimilar(ctx, table+"_missing", resp.Embeddings[0], 1)
	assert.ErrorIs(t, err, ErrTableNotFound)
}
