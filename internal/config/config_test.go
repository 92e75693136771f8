package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/api/embed", cfg.EmbeddingURL)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "ollama", cfg.EmbeddingBackend)
	assert.Equal(t, "from_go", cfg.Table)
	assert.Equal(t, "768", cfg.Dimension)
	assert.Equal(t, "l2", cfg.Metric)
	assert.Equal(t, 1, cfg.QueryLimit)
	assert.Equal(t, 5432, cfg.VectorDB.Port)
	assert.Equal(t, 5*time.Second, cfg.VectorDB.Timeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
persist_workers = 3

[embedding]
model = "mxbai-embed-large"

[vectordb]
host = "db.internal"
port = 5555
timeout = 10
table = "from_file"
dimension = "1024"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("VECTOR_DB_TABLE", "from_env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mxbai-embed-large", cfg.EmbeddingModel)
	assert.Equal(t, "db.internal", cfg.VectorDB.Host)
	assert.Equal(t, 5555, cfg.VectorDB.Port)
	assert.Equal(t, 10*time.Second, cfg.VectorDB.Timeout)
	assert.Equal(t, "1024", cfg.Dimension)
	assert.Equal(t, 3, cfg.PersistWorkers)
	assert.Equal(t, "from_env", cfg.Table, "env should override file")
	// untouched keys keep defaults
	assert.Equal(t, "vectordb", cfg.VectorDB.DBName)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[vectordb\nport = "), 0o600))
	t.Setenv(ConfigPathEnv, path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("EMBEDDING_BACKEND", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestVectorDB_ConnString(t *testing.T) {
	v := VectorDB{Host: "10.0.0.213", Port: 5555, User: "loader", DBName: "vectordb", Timeout: 5 * time.Second}
	assert.Equal(t, "host=10.0.0.213 port=5555 user=loader dbname=vectordb connect_timeout=5", v.ConnString())
	assert.Equal(t, "loader@10.0.0.213:5555/vectordb", v.String())
}

func TestVectorDB_CopiedByValue(t *testing.T) {
	cfg := Default()
	snapshot := cfg.VectorDB
	cfg.VectorDB.Host = "elsewhere"
	assert.Equal(t, "localhost", snapshot.Host)
}
