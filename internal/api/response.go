package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// errorResponse is the JSON body for error statuses.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy to ensure headers are only sent after successful
// encoding. This allows returning a proper 500 error if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff") // Prevent MIME type sniffing attacks
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "code", code, "message", message)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
