package driven

import (
	"context"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// SearchEngine scores locally persisted documents against a query.
// Relevance scoring is an external capability: the federation and
// dedup logic only depend on this interface and tests substitute
// stub implementations.
type SearchEngine interface {
	// Search returns local hits for the query text, best first,
	// at most limit. The text arrives already translated into the
	// locale of the local corpus.
	Search(ctx context.Context, text string, limit int) ([]SearchHit, error)
}

// SearchHit is one local match before federation merging.
type SearchHit struct {
	// Document is the matched document.
	Document domain.Document

	// Score is the engine's relevance score.
	Score float64

	// Snippet is a short excerpt in the document's language.
	Snippet string
}
