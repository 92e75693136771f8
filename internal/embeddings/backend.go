package embeddings

import (
	"fmt"
	"strings"
)

// NewFetcher builds the backend named by backend ("ollama", "openai", "simple").
// dimensions only applies to the simple backend.
func NewFetcher(backend, endpoint string, dimensions int) (Fetcher, error) {
	switch strings.ToLower(backend) {
	case "", "ollama":
		return NewClient(endpoint), nil
	case "openai":
		return NewOpenAIProvider(endpoint), nil
	case "simple":
		return NewSimpleProvider(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", backend)
	}
}
