package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider fetches embeddings from an OpenAI-compatible /v1/embeddings
// API through langchaingo. Local servers that ignore the bearer token (Ollama,
// vLLM, LM Studio) work with the placeholder token.
type OpenAIProvider struct {
	baseURL string
}

var _ Fetcher = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for baseURL, e.g. "http://localhost:11434/v1".
func NewOpenAIProvider(baseURL string) *OpenAIProvider {
	return &OpenAIProvider{baseURL: baseURL}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Fetch embeds all inputs with the model named by the request.
func (p *OpenAIProvider) Fetch(ctx context.Context, req RequestView) (*EmbedResponse, error) {
	// langchaingo binds the embedding model at construction, so the client is per request.
	client, err := openai.New(
		openai.WithBaseURL(p.baseURL),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(req.Model()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(client, lcembeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	if req.Len() == 0 {
		return &EmbedResponse{Model: req.Model(), Embeddings: [][]float32{}}, nil
	}

	vectors, err := embedder.EmbedDocuments(ctx, req.Inputs())
	if err != nil {
		return nil, fmt.Errorf("calling openai-compatible service: %w", err)
	}
	if vectors == nil {
		vectors = [][]float32{}
	}

	return &EmbedResponse{Model: req.Model(), Embeddings: vectors}, nil
}
