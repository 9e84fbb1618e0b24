package store

// Passage is one immutable chunk of indexed text. The embedding length must
// equal the configured dimensionality for every stored and query-time vector;
// Insert rejects violations before touching the database.
type Passage struct {
	ID        int64
	BookTitle string
	Section   string // defaults to "Full Text" when absent
	ChunkIdx  int
	Body      string
	Embedding []float32
}

// ScoredPassage is a Passage projected with its distance to a query vector
// (L2 on normalized vectors; lower = more similar). Populated only by
// retrieval, never persisted.
type ScoredPassage struct {
	Passage
	Distance float64
}

// DefaultSection is the placeholder used when a passage has no section.
const DefaultSection = "Full Text"
