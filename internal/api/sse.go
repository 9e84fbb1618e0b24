package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// sseWriter wraps an http.ResponseWriter for Server-Sent Events streaming.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter creates an SSE writer and sets the streaming headers.
// X-Accel-Buffering disables reverse-proxy buffering so deltas arrive
// promptly.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeData sends one JSON-encoded data event and flushes.
func (s *sseWriter) writeData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// writeComment sends an SSE comment line. Clients ignore comments, which
// makes them the standard content-free keep-alive.
func (s *sseWriter) writeComment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return fmt.Errorf("write comment: %w", err)
	}
	s.flusher.Flush()
	return nil
}
