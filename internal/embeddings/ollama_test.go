package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockEmbedServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req EmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := EmbedResponse{Model: req.Model, Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			vec := make([]float32, dims)
			for j := range vec {
				vec[j] = float32(j+i) * 0.001
			}
			resp.Embeddings[i] = vec
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func view(t *testing.T, model string, inputs ...string) RequestView {
	t.Helper()
	v, release, err := NewCell(model, inputs, nil).View()
	require.NoError(t, err)
	t.Cleanup(release)
	return v
}

func TestClient_Fetch(t *testing.T) {
	server := mockEmbedServer(t, 768)
	defer server.Close()

	c := NewClient(server.URL + "/api/embed")
	assert.Equal(t, "ollama", c.Name())

	resp, err := c.Fetch(context.Background(), view(t, "nomic-embed-text", "dog barks", "cat purrs"))
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", resp.Model)
	require.Len(t, resp.Embeddings, 2)
	assert.Len(t, resp.Embeddings[0], 768)
	assert.Len(t, resp.Embeddings[1], 768)
}

func TestClient_FetchEmptyInputStillCallsService(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, []any{}, raw["input"])
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[]}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Fetch(context.Background(), view(t, "m"))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, resp.Embeddings)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), view(t, "missing", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "m", "embeddings": "nope"`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), view(t, "m", "x"))
	assert.Error(t, err)
}

func TestClient_MissingEmbeddingsField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"something broke"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Fetch(context.Background(), view(t, "m", "x"))
	assert.Error(t, err)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).Fetch(context.Background(), view(t, "m", "x"))
	assert.Error(t, err)
}
