// Package config provides file- and environment-based configuration for pgvector-embed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Version is the application version reported by the version command.
const Version = "1.0.0"

// ConfigPathEnv names the environment variable holding an optional TOML config file path.
const ConfigPathEnv = "PGVECTOR_EMBED_CONFIG"

// Config holds all configuration for pgvector-embed.
type Config struct {
	// Embedding service
	EmbeddingURL     string
	EmbeddingModel   string
	EmbeddingBackend string // "ollama", "openai" or "simple"

	// Vector store
	VectorDB   VectorDB
	Table      string
	Dimension  string // parsed leniently by the ingest pipeline
	Metric     string // "l2", "cosine" or "ip"
	QueryLimit int

	// Cap on concurrent persistence units; 0 means no cap
	PersistWorkers int

	// NATS (optional)
	NatsURL string

	// HTTP server (serve command)
	Port       int
	LogLevel   string
	RateLimit  int // POST requests per client per RateWindow; 0 disables
	RateWindow time.Duration
}

// VectorDB is the connection snapshot for the vector database. It holds no live
// connection and is passed by value into each persistence unit.
type VectorDB struct {
	Host    string
	Port    int
	User    string
	DBName  string
	Timeout time.Duration
}

// ConnString renders the keyword/value connection string understood by pgx.
func (v VectorDB) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s connect_timeout=%d",
		v.Host, v.Port, v.User, v.DBName, int(v.Timeout.Seconds()))
}

// String renders a short form for logs.
func (v VectorDB) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", v.User, v.Host, v.Port, v.DBName)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EmbeddingURL:     "http://localhost:11434/api/embed",
		EmbeddingModel:   "nomic-embed-text",
		EmbeddingBackend: "ollama",
		VectorDB: VectorDB{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "vectordb",
			Timeout: 5 * time.Second,
		},
		Table:          "from_go",
		Dimension:      "768",
		Metric:         "l2",
		QueryLimit:     1,
		PersistWorkers: 0,
		NatsURL:        "",
		Port:           8600,
		LogLevel:       "info",
		RateLimit:      60,
		RateWindow:     time.Minute,
	}
}

// fileConfig mirrors the TOML file layout. Absent keys keep their defaults.
type fileConfig struct {
	Embedding struct {
		URL     *string `toml:"url"`
		Model   *string `toml:"model"`
		Backend *string `toml:"backend"`
	} `toml:"embedding"`
	VectorDB struct {
		Host           *string `toml:"host"`
		Port           *int    `toml:"port"`
		User           *string `toml:"user"`
		DBName         *string `toml:"dbname"`
		TimeoutSeconds *int    `toml:"timeout"`
		Table          *string `toml:"table"`
		Dimension      *string `toml:"dimension"`
		Metric         *string `toml:"metric"`
		QueryLimit     *int    `toml:"query_limit"`
	} `toml:"vectordb"`
	PersistWorkers *int    `toml:"persist_workers"`
	NatsURL        *string `toml:"nats_url"`
	Port           *int    `toml:"port"`
	LogLevel       *string `toml:"log_level"`
	RateLimit      *int    `toml:"rate_limit"`
}

// Load builds the configuration from defaults, the optional TOML file named by
// PGVECTOR_EMBED_CONFIG, and environment overrides, in that order.
func Load() (*Config, error) {
	c := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadFile applies a TOML file on top of the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var f fileConfig
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setStr(&c.EmbeddingURL, f.Embedding.URL)
	setStr(&c.EmbeddingModel, f.Embedding.Model)
	setStr(&c.EmbeddingBackend, f.Embedding.Backend)
	setStr(&c.VectorDB.Host, f.VectorDB.Host)
	setInt(&c.VectorDB.Port, f.VectorDB.Port)
	setStr(&c.VectorDB.User, f.VectorDB.User)
	setStr(&c.VectorDB.DBName, f.VectorDB.DBName)
	if f.VectorDB.TimeoutSeconds != nil {
		c.VectorDB.Timeout = time.Duration(*f.VectorDB.TimeoutSeconds) * time.Second
	}
	setStr(&c.Table, f.VectorDB.Table)
	setStr(&c.Dimension, f.VectorDB.Dimension)
	setStr(&c.Metric, f.VectorDB.Metric)
	setInt(&c.QueryLimit, f.VectorDB.QueryLimit)
	setInt(&c.PersistWorkers, f.PersistWorkers)
	setStr(&c.NatsURL, f.NatsURL)
	setInt(&c.Port, f.Port)
	setStr(&c.LogLevel, f.LogLevel)
	setInt(&c.RateLimit, f.RateLimit)
	return nil
}

func (c *Config) applyEnv() {
	c.EmbeddingURL = envStr("EMBEDDING_URL", c.EmbeddingURL)
	c.EmbeddingModel = envStr("EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingBackend = envStr("EMBEDDING_BACKEND", c.EmbeddingBackend)
	c.VectorDB.Host = envStr("VECTOR_DB_HOST", c.VectorDB.Host)
	c.VectorDB.Port = envInt("VECTOR_DB_PORT", c.VectorDB.Port)
	c.VectorDB.User = envStr("VECTOR_DB_USER", c.VectorDB.User)
	c.VectorDB.DBName = envStr("VECTOR_DB_NAME", c.VectorDB.DBName)
	c.VectorDB.Timeout = time.Duration(envInt("VECTOR_DB_TIMEOUT", int(c.VectorDB.Timeout.Seconds()))) * time.Second
	c.Table = envStr("VECTOR_DB_TABLE", c.Table)
	c.Dimension = envStr("VECTOR_DB_DIM", c.Dimension)
	c.Metric = envStr("VECTOR_DB_METRIC", c.Metric)
	c.QueryLimit = envInt("QUERY_LIMIT", c.QueryLimit)
	c.PersistWorkers = envInt("PERSIST_WORKERS", c.PersistWorkers)
	c.NatsURL = envStr("NATS_URL", c.NatsURL)
	c.Port = envInt("PGVECTOR_EMBED_PORT", c.Port)
	c.LogLevel = envStr("PGVECTOR_EMBED_LOG_LEVEL", c.LogLevel)
	c.RateLimit = envInt("PGVECTOR_EMBED_RATE_LIMIT", c.RateLimit)
}

// Validate reports configuration values no command can run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.EmbeddingBackend {
	case "ollama", "openai", "simple":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding backend %q", c.EmbeddingBackend))
	}
	if c.EmbeddingURL == "" && c.EmbeddingBackend != "simple" {
		errs = append(errs, errors.New("EMBEDDING_URL is required"))
	}
	if c.PersistWorkers < 0 {
		errs = append(errs, fmt.Errorf("persist workers must be >= 0, got %d", c.PersistWorkers))
	}
	return errors.Join(errs...)
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
