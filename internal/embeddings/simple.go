package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// SimpleProvider generates embeddings with a keyword hashing approach. It is not
// semantically meaningful, but it is deterministic and needs no service, which
// makes it useful for development and for exercising the store offline.
type SimpleProvider struct {
	dimensions int
}

var _ Fetcher = (*SimpleProvider)(nil)

// NewSimpleProvider creates a SimpleProvider producing vectors of the given width.
// A width <= 0 falls back to DefaultDimensions.
func NewSimpleProvider(dimensions int) *SimpleProvider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &SimpleProvider{dimensions: dimensions}
}

// Name returns the provider name.
func (p *SimpleProvider) Name() string {
	return "simple"
}

// Dimensions returns the vector width.
func (p *SimpleProvider) Dimensions() int {
	return p.dimensions
}

// Fetch embeds every input of req locally.
func (p *SimpleProvider) Fetch(ctx context.Context, req RequestView) (*EmbedResponse, error) {
	out := make([][]float32, req.Len())
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embed(req.Input(i))
	}
	return &EmbedResponse{Model: req.Model(), Embeddings: out}, nil
}

// embed hashes words and bigrams into dimensions, then L2 normalizes.
func (p *SimpleProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimensions)
	words := tokenize(text)

	for _, word := range words {
		vec[p.bucket(word)] += 1.0
	}
	for i := 0; i < len(words)-1; i++ {
		vec[p.bucket(words[i]+" "+words[i+1])] += 0.5
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (p *SimpleProvider) bucket(token string) int {
	h := fnv.New64a()
	h.Write([]byte(token))
	return int(h.Sum64() % uint64(p.dimensions))
}

// tokenize splits text into lowercase word tokens of at least two characters.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	for _, c := range ".,;:!?()[]{}\"'`~@#$%^&*+=|\\/<>" {
		text = strings.ReplaceAll(text, string(c), " ")
	}
	var result []string
	for _, f := range strings.Fields(text) {
		if len(f) >= 2 {
			result = append(result, f)
		}
	}
	return result
}
