package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openshelf/ragd/internal/store"
)

// Embedder embeds a single query string. *embed.Gateway satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs nearest-neighbor search. *store.Store satisfies it.
type Searcher interface {
	NearestNeighbors(ctx context.Context, query []float32, k int) ([]store.ScoredPassage, error)
}

// Retriever turns a question into an ordered list of scored passages:
// one embedding call (batch size 1), a dimensionality check, then a
// nearest-neighbor search. No caching; every call re-embeds and re-queries.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	dim      int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. dim is the required query-vector length.
func NewRetriever(embedder Embedder, searcher Searcher, dim int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, dim: dim, logger: logger}
}

// Retrieve returns up to k passages ordered by ascending distance to the
// question. An empty store yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]store.ScoredPassage, error) {
	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vec) != r.dim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrEmbeddingDimension, len(vec), r.dim)
	}

	passages, err := r.searcher.NearestNeighbors(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching passages: %w", err)
	}

	r.logger.Debug("retrieved passages", "k", k, "found", len(passages))
	return passages, nil
}
