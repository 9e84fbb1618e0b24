package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/openshelf/ragd/internal/rag"
)

// queryRequest is the payload for POST /query/stream.
type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type deltaPayload struct {
	Delta string `json:"delta"`
}

type finalPayload struct {
	Final   bool         `json:"final"`
	Sources []rag.Source `json:"sources"`
}

type queryHandler struct {
	pipeline QueryService
	logger   *slog.Logger
}

// stream handles POST /query/stream: run the retrieval pipeline and relay
// generation as Server-Sent Events. Retrieval and validation failures are
// reported as JSON errors before any SSE bytes are committed; failures after
// the stream has started terminate it without a final event.
func (h *queryHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}

	events, err := h.pipeline.AnswerStream(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeMappedError(w, err, h.logger)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming", h.logger)
		return
	}

	requestID, _ := requestIDFromContext(r.Context())

	for ev, streamErr := range events {
		if streamErr != nil {
			if errors.Is(streamErr, context.Canceled) {
				h.logger.Info("query stream canceled by client",
					slog.String("request_id", requestID))
			} else {
				h.logger.Error("query stream failed",
					slog.String("request_id", requestID),
					slog.String("error", streamErr.Error()))
			}
			return
		}

		var writeErr error
		switch e := ev.(type) {
		case rag.Delta:
			writeErr = sse.writeData(deltaPayload{Delta: e.Text})
		case rag.Heartbeat:
			writeErr = sse.writeComment("ping")
		case rag.Final:
			writeErr = sse.writeData(finalPayload{Final: true, Sources: e.Sources})
		}
		if writeErr != nil {
			h.logger.Info("query stream client write failed",
				slog.String("request_id", requestID),
				slog.String("error", writeErr.Error()))
			return
		}
	}
}
