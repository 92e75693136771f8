// Package embeddings provides the embedding request model, the shared request
// cell, and swappable backends that turn text into vectors.
package embeddings

import (
	"context"
	"encoding/json"
	"slices"
)

// DefaultDimensions is the vector width of nomic-embed-text.
const DefaultDimensions = 768

// EmbedRequest is one batch of texts to embed with a single model.
type EmbedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Metadata *string  `json:"metadata,omitempty"`
}

// EmbedResponse carries one vector per request input, in input order.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// EmptyResponse returns the sentinel used when a fetch produced nothing to persist.
func EmptyResponse() *EmbedResponse {
	return &EmbedResponse{Model: "", Embeddings: [][]float32{}}
}

// IsEmpty reports whether the response has no vectors.
func (r *EmbedResponse) IsEmpty() bool {
	return r == nil || len(r.Embeddings) == 0
}

// RequestView is a read-only view of an EmbedRequest held by a Cell.
type RequestView interface {
	Model() string
	Len() int
	Input(i int) string
	// Inputs returns a fresh slice header; the strings themselves are shared.
	Inputs() []string
	Metadata() (string, bool)
	json.Marshaler
}

// Fetcher turns a request into embeddings with one call to a backend.
type Fetcher interface {
	Fetch(ctx context.Context, req RequestView) (*EmbedResponse, error)

	// Name returns the backend name for logging.
	Name() string
}

type requestView struct {
	req *EmbedRequest
}

func (v requestView) Model() string      { return v.req.Model }
func (v requestView) Len() int           { return len(v.req.Input) }
func (v requestView) Input(i int) string { return v.req.Input[i] }
func (v requestView) Inputs() []string   { return slices.Clone(v.req.Input) }

func (v requestView) Metadata() (string, bool) {
	if v.req.Metadata == nil {
		return "", false
	}
	return *v.req.Metadata, true
}

// MarshalJSON encodes the wire shape {model, input[]}; a nil input list is sent as [].
func (v requestView) MarshalJSON() ([]byte, error) {
	input := v.req.Input
	if input == nil {
		input = []string{}
	}
	return json.Marshal(EmbedRequest{Model: v.req.Model, Input: input, Metadata: v.req.Metadata})
}
