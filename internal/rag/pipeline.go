// Package rag composes the retrieval-augmented answer pipeline: embed the
// question, search the vector store, build a grounded prompt, and stream the
// generated answer as an ordered event sequence with keep-alive heartbeats.
package rag

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/openshelf/ragd/internal/store"
)

// DefaultHeartbeatInterval is the idle gap after which a Heartbeat is
// injected to keep intermediaries from tearing down the stream.
const DefaultHeartbeatInterval = 15 * time.Second

// Generator opens a streaming completion and delivers text fragments to the
// callback in arrival order. *ollama.Client satisfies it.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string, fn func(delta string) error) error
}

// Pipeline is the query orchestrator: Retriever → prompt → generation
// stream. Stateless per call; safe for concurrent use.
type Pipeline struct {
	retriever *Retriever
	generator Generator
	heartbeat time.Duration
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHeartbeatInterval overrides the keep-alive interval. Tests use short
// intervals; production keeps the default.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.heartbeat = d
		}
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(retriever *Retriever, generator Generator, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		retriever: retriever,
		generator: generator,
		heartbeat: DefaultHeartbeatInterval,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search is a direct pass-through to the Retriever for non-generative
// callers (search endpoint, ingestion smoke tests).
func (p *Pipeline) Search(ctx context.Context, question string, topK int) ([]store.ScoredPassage, error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}
	return p.retriever.Retrieve(ctx, question, topK)
}

// AnswerStream runs the full pipeline and returns a lazy, finite,
// non-restartable event sequence: zero or more Delta/Heartbeat events and
// exactly one terminal Final. Validation and retrieval failures are returned
// synchronously, before any event is produced; generation failures surface
// through the sequence and terminate it without a Final.
//
// When retrieval finds nothing, the generation backend is bypassed entirely
// and the sequence is a single Final with empty sources.
func (p *Pipeline) AnswerStream(ctx context.Context, question string, topK int) (iter.Seq2[Event, error], error) {
	if err := validateTopK(topK); err != nil {
		return nil, err
	}

	passages, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		p.logger.Debug("no passages retrieved, short-circuiting stream")
		return func(yield func(Event, error) bool) {
			yield(Final{Sources: []Source{}}, nil)
		}, nil
	}

	prompt := BuildPrompt(question, passages)
	sources := sourcesFrom(passages)

	return p.streamEvents(ctx, prompt, sources), nil
}

func validateTopK(topK int) error {
	if topK < MinTopK || topK > MaxTopK {
		return fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidTopK, MinTopK, MaxTopK, topK)
	}
	return nil
}

// sourcesFrom projects passages into Final-event sources, preserving the
// order used for prompt bracket indices.
func sourcesFrom(passages []store.ScoredPassage) []Source {
	sources := make([]Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, Source{
			ID:        p.ID,
			BookTitle: p.BookTitle,
			Section:   p.Section,
			ChunkIdx:  p.ChunkIdx,
			Distance:  p.Distance,
		})
	}
	return sources
}
