package domain

import "time"

// Completeness flags whether a summary covers every reachable branch.
type Completeness string

const (
	// SummaryComplete means every dispatched branch answered in time.
	SummaryComplete Completeness = "complete"

	// SummaryDegraded means at least one branch timed out or was
	// unreachable; the summary covers whatever arrived.
	SummaryDegraded Completeness = "degraded"
)

// ResultItem is one match inside a ServerSummary.
type ResultItem struct {
	// Signature identifies the matched document content.
	Signature string

	// Score is the relevance score assigned by the search engine.
	Score float64

	// ServerID is the mesh server whose local store produced the hit.
	ServerID string

	// Snippet is a short excerpt, translated into the query locale
	// before the summary is returned to the caller.
	Snippet string

	// Timestamp is the origin timestamp of the matched document.
	Timestamp time.Time
}

// ServerSummary is the single deduplicated, translated result set a
// server returns for a query. Items are unique by signature and ordered
// by descending score.
type ServerSummary struct {
	// QueryID links back to the originating query.
	QueryID string

	// Items are the merged results, at most one per signature.
	Items []ResultItem

	// Provenance lists the distinct server ids that contributed
	// results, entry server first.
	Provenance []string

	// Completeness is SummaryComplete or SummaryDegraded.
	Completeness Completeness

	// Unresponsive lists neighbors that timed out or were
	// unreachable. Empty for complete summaries.
	Unresponsive []string
}
