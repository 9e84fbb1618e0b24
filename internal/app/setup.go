package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshelf/ragd/db"
	"github.com/openshelf/ragd/internal/config"
	"github.com/openshelf/ragd/internal/embed"
	"github.com/openshelf/ragd/internal/observability"
	"github.com/openshelf/ragd/internal/ollama"
	"github.com/openshelf/ragd/internal/rag"
	"github.com/openshelf/ragd/internal/store"
)

const (
	otelShutdownTimeout = 5 * time.Second
	warmupTimeout       = 60 * time.Second
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	st, err := provideStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = st

	gateway, err := provideEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = gateway

	a.Ollama = ollama.New(cfg.OllamaURL, cfg.GenModel, logger)

	retriever := rag.NewRetriever(gateway, st, cfg.EmbeddingDim, logger)
	a.Pipeline = rag.NewPipeline(retriever, a.Ollama, logger)

	warmup(ctx, a.Ollama, logger)

	return a, nil
}

// provideOtelShutdown configures OTLP tracing and returns its teardown.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: "ragd",
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideStore runs migrations and opens the pooled passage store.
func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	st := store.New(store.Config{
		ConnString: cfg.DatabaseURL,
		MinConns:   cfg.PoolMinConns,
		MaxConns:   cfg.PoolMaxConns,
		Probes:     cfg.IVFFlatProbes,
		Dim:        cfg.EmbeddingDim,
	}, logger)

	if err := st.Open(ctx); err != nil {
		return nil, fmt.Errorf("opening passage store: %w", err)
	}

	return st, nil
}

// provideEmbedder builds the embedding gateway over the Ollama embedder.
func provideEmbedder(cfg *config.Config, logger *slog.Logger) (*embed.Gateway, error) {
	embedder, err := embed.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("creating ollama embedder: %w", err)
	}

	return embed.NewGateway(embedder, cfg.EmbeddingDim, logger), nil
}

// warmup asks the generation model for a trivial completion in the
// background so the first real query doesn't pay the model load time.
// Failures are logged and discarded.
func warmup(ctx context.Context, client *ollama.Client, logger *slog.Logger) {
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
		defer cancel()

		start := time.Now()
		if _, err := client.Generate(warmCtx, "hi"); err != nil {
			logger.Debug("model warmup failed", "model", client.Model(), "error", err)
			return
		}
		logger.Info("model warmed up",
			"model", client.Model(),
			"duration", time.Since(start).Round(time.Millisecond))
	}()
}
