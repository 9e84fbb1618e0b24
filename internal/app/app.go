// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles all service components: the passage
// store, the embedding gateway, the Ollama generation client, and the
// retrieval pipeline. Construction runs migrations and opens the store;
// Close releases everything in reverse order.
package app

import (
	"log/slog"

	"github.com/openshelf/ragd/internal/config"
	"github.com/openshelf/ragd/internal/embed"
	"github.com/openshelf/ragd/internal/ollama"
	"github.com/openshelf/ragd/internal/rag"
	"github.com/openshelf/ragd/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Store    *store.Store
	Embedder *embed.Gateway
	Ollama   *ollama.Client
	Pipeline *rag.Pipeline

	logger      *slog.Logger
	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger.Info("shutting down application")

	if a.Store != nil {
		a.Store.Close()
		a.logger.Info("passage store closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
