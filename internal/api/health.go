package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// health is a simple liveness endpoint for Docker/Kubernetes probes.
// Returns 200 OK with {"ok":true}.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// readiness reports whether the vector store is reachable, with pool
// statistics for operators.
func readiness(st PassageStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}

		total, idle := st.Stat()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"pool_total": total,
			"pool_idle":  idle,
		})
	})
}
