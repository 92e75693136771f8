package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/search"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

// Searcher runs similarity queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Match, error)
}

// SearchHandler provides the similarity search endpoint.
type SearchHandler struct {
	searcher Searcher
	defaults Defaults
	logger   *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searcher Searcher, defaults Defaults, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, defaults: defaults, logger: logger}
}

// SearchRequest is the request body for POST /search. A missing limit uses the
// configured default.
type SearchRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
	Table string   `json:"table,omitempty"`
	Limit *int     `json:"limit,omitempty"`
}

// Search handles POST /search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if len(req.Input) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "input is required")
		return
	}

	limit := h.defaults.Limit
	if req.Limit != nil {
		limit = *req.Limit
	}

	matches, err := h.searcher.Search(r.Context(), search.Query{
		Model:  orDefault(req.Model, h.defaults.Model),
		Inputs: req.Input,
		Table:  orDefault(req.Table, h.defaults.Table),
		Limit:  limit,
		DB:     h.defaults.DB,
	})
	if errors.Is(err, store.ErrEmptyTable) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "table is required")
		return
	}
	if err != nil {
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Search failed")
		return
	}

	writeSuccess(w, http.StatusOK, matches)
}
