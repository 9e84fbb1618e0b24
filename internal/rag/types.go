package rag

import "errors"

var (
	// ErrInvalidTopK indicates top_k is outside [MinTopK, MaxTopK].
	// Rejected before any external call.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrEmbeddingDimension indicates the embedding backend returned a
	// query vector of the wrong length. Distinct from the store-side
	// precondition violation so callers can tell the two apart.
	ErrEmbeddingDimension = errors.New("query embedding dimension mismatch")

	// ErrGenerationFailed indicates the generation backend was unreachable
	// or failed mid-stream. The event sequence terminates without a Final.
	ErrGenerationFailed = errors.New("generation failed")
)

// Bounds for the top_k request parameter.
const (
	MinTopK = 1
	MaxTopK = 50
)

// Source identifies one retrieved passage in a Final event. Order matches
// the 1-based bracket indices used in the prompt, so citations like [2] in
// the generated text resolve to Sources[1].
type Source struct {
	ID        int64   `json:"id"`
	BookTitle string  `json:"book_title"`
	Section   string  `json:"section"`
	ChunkIdx  int     `json:"chunk_idx"`
	Distance  float64 `json:"distance"`
}

// Event is one element of an answer stream. It is a sealed union:
// Delta, Heartbeat, or Final.
//
// A stream consists of zero or more Delta/Heartbeat events followed by
// exactly one Final. A failed stream instead terminates with an error and
// no Final.
type Event interface {
	event()
}

// Delta carries one incremental fragment of generated answer text.
type Delta struct {
	Text string
}

// Heartbeat is a content-free keep-alive, emitted when the upstream has been
// silent for the heartbeat interval.
type Heartbeat struct{}

// Final terminates a stream and carries the citation metadata for every
// passage that was supplied to the prompt, in prompt order.
type Final struct {
	Sources []Source
}

func (Delta) event()     {}
func (Heartbeat) event() {}
func (Final) event()     {}
