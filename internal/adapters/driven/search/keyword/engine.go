// Package keyword provides a naive term-frequency search engine over a
// document store. Real deployments delegate relevance scoring to an
// external engine; this adapter keeps single-node setups and tests
// working without one.
package keyword

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.SearchEngine = (*Engine)(nil)

// SnippetRadius is how many characters surround the first match in a
// snippet.
const SnippetRadius = 60

// Lister is the subset of storage the engine scans. Both the SQLite
// and memory document stores satisfy it.
type Lister interface {
	ListAll(ctx context.Context) ([]domain.Document, error)
}

// Engine scores documents by query term frequency.
type Engine struct {
	docs Lister
}

// New creates a keyword engine over the given store.
func New(docs Lister) *Engine {
	return &Engine{docs: docs}
}

// Search returns local hits for the query text, best first.
func (e *Engine) Search(ctx context.Context, text string, limit int) ([]driven.SearchHit, error) {
	terms := tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}

	docs, err := e.docs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var hits []driven.SearchHit
	for _, doc := range docs {
		score, matchPos := scoreDocument(&doc, terms)
		if score <= 0 {
			continue
		}
		hits = append(hits, driven.SearchHit{
			Document: doc,
			Score:    score,
			Snippet:  snippet(doc.Canonical, matchPos),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// scoreDocument counts term occurrences across the canonical and
// translated text. Matching every query term scores higher than
// repeating one. Returns the score and the position of the first match
// in the canonical text (-1 when the match is only in the translation).
func scoreDocument(doc *domain.Document, terms []string) (float64, int) {
	canonical := strings.ToLower(doc.Canonical)
	translated := strings.ToLower(doc.Translated)

	matched := 0
	frequency := 0
	firstPos := -1
	for _, term := range terms {
		count := strings.Count(canonical, term) + strings.Count(translated, term)
		if count == 0 {
			continue
		}
		matched++
		frequency += count
		if pos := strings.Index(canonical, term); pos >= 0 && (firstPos < 0 || pos < firstPos) {
			firstPos = pos
		}
	}
	if matched == 0 {
		return 0, -1
	}

	coverage := float64(matched) / float64(len(terms))
	return coverage + float64(frequency)*0.01, firstPos
}

// snippet extracts a window around pos from the canonical text. Window
// edges land on rune boundaries so multi-byte text never gets cut
// mid-rune.
func snippet(text string, pos int) string {
	if text == "" {
		return ""
	}
	if pos < 0 {
		pos = 0
	}
	start := pos - SnippetRadius
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := pos + SnippetRadius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

// tokenize lowercases and splits query text into terms.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}
