// Package embed wraps the external embedding model behind a small gateway.
//
// The gateway normalizes inputs to a batch, validates the dimensionality of
// every returned vector, and L2-normalizes vectors so that Euclidean ordering
// in the store is equivalent to cosine ordering.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

var (
	// ErrUnavailable indicates the backing embedding model could not be
	// reached. Surfaced to the caller; no retry inside the gateway.
	ErrUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch indicates the model returned a vector whose
	// length differs from the configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder is the subset of the langchaingo embeddings API the gateway
// consumes. *embeddings.EmbedderImpl satisfies it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Gateway validates and normalizes embeddings from an external model.
// Stateless per call; safe for concurrent use.
type Gateway struct {
	embedder Embedder
	dim      int
	logger   *slog.Logger
}

// NewGateway creates a Gateway over the given embedder. Every returned
// vector must have length dim.
func NewGateway(embedder Embedder, dim int, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{embedder: embedder, dim: dim, logger: logger}
}

// NewOllamaEmbedder builds a langchaingo embedder backed by an Ollama server.
func NewOllamaEmbedder(serverURL, model string) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// EmbedTexts embeds a batch of texts, one vector per input in input order.
// Each vector is validated against the configured dimensionality and
// L2-normalized before being returned.
func (g *Gateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := g.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrUnavailable, len(vecs), len(texts))
	}

	for _, vec := range vecs {
		if len(vec) != g.dim {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), g.dim)
		}
		normalizeL2(vec)
	}

	g.logger.Debug("embedded batch", "texts", len(texts), "dim", g.dim)
	return vecs, nil
}

// EmbedQuery embeds a single text (batch size 1).
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dim reports the configured embedding dimensionality.
func (g *Gateway) Dim() int { return g.dim }

// normalizeL2 scales vec to unit length in place. Zero vectors are left
// untouched.
func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
