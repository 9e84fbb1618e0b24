// Package api implements the ragd HTTP surface: ingestion, semantic search,
// the SSE streaming query endpoint, and health probes.
//
// Route table:
//
//	GET  /health        liveness probe
//	GET  /ready         readiness probe (store connectivity + pool stats)
//	POST /chunks/raw    insert a passage with a precomputed embedding
//	POST /chunks/auto   embed server-side, then insert
//	POST /search        semantic search (JSON in/out)
//	POST /query/stream  retrieval-augmented answer as an SSE stream
//
// Middleware stack (outermost first):
// Recovery → RequestID → Logging → CORS → RateLimit → Routes.
// Health probes bypass the middleware stack.
package api

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"

	"github.com/openshelf/ragd/internal/rag"
	"github.com/openshelf/ragd/internal/store"
)

// QueryService is the pipeline surface the handlers consume.
// *rag.Pipeline satisfies it.
type QueryService interface {
	Search(ctx context.Context, question string, topK int) ([]store.ScoredPassage, error)
	AnswerStream(ctx context.Context, question string, topK int) (iter.Seq2[rag.Event, error], error)
}

// PassageStore is the store surface the ingestion and readiness handlers
// consume. *store.Store satisfies it.
type PassageStore interface {
	Insert(ctx context.Context, p store.Passage) error
	Ping(ctx context.Context) error
	Stat() (total, idle int32)
}

// Embedder embeds passage bodies for the auto-ingestion path.
// *embed.Gateway satisfies it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Pipeline     QueryService // Required
	Store        PassageStore // Required
	Embedder     Embedder     // Required
	EmbeddingDim int          // Required: length every ingested embedding must have
	CORSOrigins  []string     // Allowed origins; "*" allows any
	TrustProxy   bool         // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst    int          // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON/SSE HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ih := &ingestHandler{
		store:    cfg.Store,
		embedder: cfg.Embedder,
		dim:      cfg.EmbeddingDim,
		logger:   logger,
	}
	sh := &searchHandler{pipeline: cfg.Pipeline, logger: logger}
	qh := &queryHandler{pipeline: cfg.Pipeline, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chunks/raw", ih.insertRaw)
	mux.HandleFunc("POST /chunks/auto", ih.insertAuto)
	mux.HandleFunc("POST /search", sh.search)
	mux.HandleFunc("POST /query/stream", qh.stream)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first). RequestID must be before
	// Logging so request_id is available in log attributes; CORS before
	// RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Store, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
