// Package api provides HTTP handlers for the pgvector-embed REST API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
)

// ConnChecker reports whether an optional dependency is connected.
type ConnChecker interface {
	IsConnected() bool
}

// HealthHandler provides the health endpoint.
type HealthHandler struct {
	backend   string
	nats      ConnChecker
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. nats may be nil.
func NewHealthHandler(backend string, nats ConnChecker) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		nats:      nats,
		startTime: time.Now(),
	}
}

// Health returns the service health status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	natsStatus := "disabled"
	if h.nats != nil {
		natsStatus = "disconnected"
		if h.nats.IsConnected() {
			natsStatus = "connected"
		}
	}

	resp := map[string]any{
		"status":         "healthy",
		"version":        config.Version,
		"backend":        h.backend,
		"nats":           natsStatus,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}
	if natsStatus == "disconnected" {
		resp["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
		"meta": map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeSuccess writes a standard success response.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"data": data,
		"meta": map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}
