package domain

import "time"

// Query is a federated search request as it travels the mesh. It exists
// only for the duration of federation and is discarded after a terminal
// state.
type Query struct {
	// ID is the unique identifier assigned at the entry server.
	ID string

	// Text is the raw query text in the caller's language.
	Text string

	// Locale is the language tag of Text.
	Locale string

	// Metadata contains caller-supplied filters.
	Metadata map[string]string

	// HopsLeft bounds further propagation. It strictly decreases on
	// each hop; forwarding stops at zero.
	HopsLeft int

	// Visited is the set of server ids this query has already
	// touched. It strictly grows on each hop and never contains
	// duplicates.
	Visited []string

	// Deadline is the absolute point after which outstanding
	// branches are cancelled and whatever arrived is merged.
	Deadline time.Time
}

// HasVisited reports whether the query already touched the server.
func (q *Query) HasVisited(serverID string) bool {
	for _, id := range q.Visited {
		if id == serverID {
			return true
		}
	}
	return false
}

// NextHop returns the query as it must be forwarded to a neighbor:
// hop count decremented, visited set extended with self. The receiver
// owns the returned copy.
func (q *Query) NextHop(selfID string) Query {
	next := *q
	next.HopsLeft = q.HopsLeft - 1
	next.Visited = make([]string, 0, len(q.Visited)+1)
	next.Visited = append(next.Visited, q.Visited...)
	if !q.HasVisited(selfID) {
		next.Visited = append(next.Visited, selfID)
	}
	return next
}
