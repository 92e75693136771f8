// Package server provides the HTTP server setup for pgvector-embed.
package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/api"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/middleware"
)

// Deps are the collaborators the routes are served by.
type Deps struct {
	Runner   api.Runner
	Searcher api.Searcher
	Backend  string
	Nats     api.ConnChecker // optional
}

// Server holds all dependencies for the pgvector-embed HTTP server.
type Server struct {
	Router *chi.Mux
	Config *config.Config
	Logger *slog.Logger
}

// New creates a new Server with all routes configured.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))

	defaults := api.Defaults{
		Model:     cfg.EmbeddingModel,
		Table:     cfg.Table,
		Dimension: cfg.Dimension,
		Limit:     cfg.QueryLimit,
		DB:        cfg.VectorDB,
	}

	// Handlers
	healthHandler := api.NewHealthHandler(deps.Backend, deps.Nats)
	embeddingsHandler := api.NewEmbeddingsHandler(deps.Runner, defaults, logger)
	searchHandler := api.NewSearchHandler(deps.Searcher, defaults, logger)

	writeRL := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (no rate limit)
		r.Get("/health", healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(writeRL.Middleware)
			r.Post("/embeddings", embeddingsHandler.Create)
			r.Post("/search", searchHandler.Search)
		})
	})

	return &Server{
		Router: r,
		Config: cfg,
		Logger: logger,
	}
}
