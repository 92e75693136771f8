package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client fetches embeddings from an Ollama-compatible /api/embed endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a client for the full endpoint URL, e.g.
// "http://localhost:11434/api/embed". No timeout is set on the HTTP client;
// callers bound the call through ctx.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return "ollama"
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch issues one POST for all inputs in req. It does not retry.
func (c *Client) Fetch(ctx context.Context, req RequestView) (*EmbedResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result EmbedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if result.Embeddings == nil {
		return nil, fmt.Errorf("parsing response: missing embeddings field")
	}

	return &result, nil
}
