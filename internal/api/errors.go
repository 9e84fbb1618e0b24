package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openshelf/ragd/internal/embed"
	"github.com/openshelf/ragd/internal/rag"
	"github.com/openshelf/ragd/internal/store"
)

// writeMappedError translates pipeline/store sentinel errors into HTTP
// statuses. Precondition violations are client errors; external-collaborator
// failures are server errors and are never silently swallowed.
func writeMappedError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, rag.ErrInvalidTopK), errors.Is(err, store.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error(), logger)
	case errors.Is(err, store.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "store_closed", err.Error(), logger)
	case errors.Is(err, rag.ErrEmbeddingDimension), errors.Is(err, embed.ErrDimensionMismatch):
		writeError(w, http.StatusInternalServerError, "embedding_dimension_mismatch", err.Error(), logger)
	case errors.Is(err, embed.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, "embedding_unavailable", err.Error(), logger)
	case errors.Is(err, rag.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, "generation_failed", err.Error(), logger)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), logger)
	}
}
