package rag

import (
	"fmt"
	"strings"

	"github.com/openshelf/ragd/internal/store"
)

// promptPreamble is the fixed grounding instruction. The model is told to
// answer only from the supplied context and to cite with bracket indices.
const promptPreamble = "You are a precise scientific assistant. Use ONLY the context to answer.\n" +
	"Cite sources with [1], [2], etc., matching the bracketed chunks.\n" +
	"If the answer is not contained in the context, say you don't know.\n\n"

// BuildPrompt deterministically assembles the grounding prompt from the
// question and the retrieved passages, in input order. The bracket index of
// each context block is the passage's 1-based position, which must match the
// position later reported in the Final event's sources.
func BuildPrompt(question string, passages []store.ScoredPassage) string {
	var b strings.Builder

	b.WriteString(promptPreamble)
	b.WriteString("Context:\n")
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (book=%s, section=%s, idx=%d)\n%s",
			i+1, p.BookTitle, p.Section, p.ChunkIdx, p.Body)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", question)

	return b.String()
}
