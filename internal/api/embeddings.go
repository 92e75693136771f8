package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/ingest"
)

// Runner starts ingestion runs.
type Runner interface {
	Run(ctx context.Context, params ingest.Params) (*ingest.Handle, error)
}

// EmbeddingsHandler accepts texts to embed and store.
type EmbeddingsHandler struct {
	runner   Runner
	defaults Defaults
	logger   *slog.Logger
}

// NewEmbeddingsHandler creates a new EmbeddingsHandler.
func NewEmbeddingsHandler(runner Runner, defaults Defaults, logger *slog.Logger) *EmbeddingsHandler {
	return &EmbeddingsHandler{runner: runner, defaults: defaults, logger: logger}
}

// EmbedRequest is the request body for POST /embeddings.
type EmbedRequest struct {
	Model     string    `json:"model,omitempty"`
	Input     []string  `json:"input"`
	Table     string    `json:"table,omitempty"`
	Dimension Dimension `json:"dimension,omitempty"`
	Metadata  *string   `json:"metadata,omitempty"`
}

// EmbedAccepted is returned once the run's persistence unit is scheduled.
type EmbedAccepted struct {
	RunID  string `json:"run_id"`
	Table  string `json:"table"`
	State  string `json:"state"`
	Inputs int    `json:"inputs"`
}

// Create handles POST /embeddings. The embedding call completes before the
// response; rows are written in the background.
func (h *EmbeddingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Input == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "input is required")
		return
	}

	params := ingest.Params{
		Model:     orDefault(req.Model, h.defaults.Model),
		Inputs:    req.Input,
		Metadata:  req.Metadata,
		Table:     orDefault(req.Table, h.defaults.Table),
		Dimension: orDefault(string(req.Dimension), h.defaults.Dimension),
		DB:        h.defaults.DB,
	}

	handle, err := h.runner.Run(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to start ingestion run", "error", err)
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Failed to start ingestion run")
		return
	}

	writeSuccess(w, http.StatusAccepted, EmbedAccepted{
		RunID:  handle.ID.String(),
		Table:  handle.Table,
		State:  handle.State().String(),
		Inputs: len(req.Input),
	})
}
