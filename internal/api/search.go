package api

import (
	"log/slog"
	"net/http"
)

const defaultTopK = 5

// searchRequest is the payload for POST /search.
type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// searchResult is one row of a search response, richer than a stream source
// in that it carries the passage body.
type searchResult struct {
	ID        int64   `json:"id"`
	BookTitle string  `json:"book_title"`
	Section   string  `json:"section"`
	ChunkIdx  int     `json:"chunk_idx"`
	Body      string  `json:"body"`
	Distance  float64 `json:"distance"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchHandler struct {
	pipeline QueryService
	logger   *slog.Logger
}

// search handles POST /search: embed the query and return the nearest
// passages with their L2 distances.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required", h.logger)
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}

	scored, err := h.pipeline.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeMappedError(w, err, h.logger)
		return
	}

	results := make([]searchResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, searchResult{
			ID:        s.ID,
			BookTitle: s.BookTitle,
			Section:   s.Section,
			ChunkIdx:  s.ChunkIdx,
			Body:      s.Body,
			Distance:  s.Distance,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}
