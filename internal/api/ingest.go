package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openshelf/ragd/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20 // 1 MB

// chunkRequest is the common ingestion payload. A missing section defaults
// to the placeholder at decode time, not at serialization.
type chunkRequest struct {
	BookTitle string `json:"book_title"`
	Section   string `json:"section"`
	ChunkIdx  int    `json:"chunk_idx"`
	Body      string `json:"body"`
}

// rawChunkRequest carries a client-side precomputed embedding.
type rawChunkRequest struct {
	chunkRequest
	Embedding []float32 `json:"embedding"`
}

type ingestHandler struct {
	store    PassageStore
	embedder Embedder
	dim      int
	logger   *slog.Logger
}

// decodeJSON decodes a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

func (c *chunkRequest) validate() error {
	if c.BookTitle == "" {
		return fmt.Errorf("book_title is required")
	}
	if c.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// passage builds the store record, applying the section default.
func (c *chunkRequest) passage(embedding []float32) store.Passage {
	section := c.Section
	if section == "" {
		section = store.DefaultSection
	}
	return store.Passage{
		BookTitle: c.BookTitle,
		Section:   section,
		ChunkIdx:  c.ChunkIdx,
		Body:      c.Body,
		Embedding: embedding,
	}
}

// insertRaw handles POST /chunks/raw: insert with a precomputed embedding.
// A wrong embedding length is a client error, rejected before any store
// mutation.
func (h *ingestHandler) insertRaw(w http.ResponseWriter, r *http.Request) {
	var req rawChunkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if len(req.Embedding) != h.dim {
		writeError(w, http.StatusBadRequest, "invalid_argument",
			fmt.Sprintf("embedding length must be %d, got %d", h.dim, len(req.Embedding)), h.logger)
		return
	}

	if err := h.store.Insert(r.Context(), req.passage(req.Embedding)); err != nil {
		writeMappedError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "inserted"})
}

// insertAuto handles POST /chunks/auto: embed the body server-side, then
// insert. An embedding failure here is a server error; the client sent a
// valid request.
func (h *ingestHandler) insertAuto(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	vecs, err := h.embedder.EmbedTexts(r.Context(), []string{req.Body})
	if err != nil {
		writeMappedError(w, err, h.logger)
		return
	}

	if err := h.store.Insert(r.Context(), req.passage(vecs[0])); err != nil {
		writeMappedError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "inserted"})
}
