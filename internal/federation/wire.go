// Package federation defines the peer-to-peer wire protocol shared by
// the HTTP client adapter and the API handler. Both sides marshal
// through these types, so the protocol has a single source of truth.
package federation

import (
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// Paths mounted by every mesh server.
const (
	QueryPath = "/federation/query"
	PingPath  = "/federation/ping"
)

// QueryRequest is a forwarded query on the wire.
type QueryRequest struct {
	QueryID          string            `json:"queryId"`
	Text             string            `json:"text"`
	Locale           string            `json:"locale"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	HopCount         int               `json:"hopCount"`
	VisitedServerIDs []string          `json:"visitedServerIds"`
	Deadline         time.Time         `json:"deadline"`
}

// ResultItem is one match on the wire.
type ResultItem struct {
	Signature string    `json:"signature"`
	Score     float64   `json:"score"`
	ServerID  string    `json:"serverId"`
	Snippet   string    `json:"snippet"`
	Timestamp time.Time `json:"timestamp"`
}

// SummaryResponse is a server summary on the wire.
type SummaryResponse struct {
	QueryID      string       `json:"queryId"`
	Items        []ResultItem `json:"items"`
	Provenance   []string     `json:"provenance"`
	Completeness string       `json:"completeness"`
	Unresponsive []string     `json:"unresponsive,omitempty"`
}

// FromDomainQuery converts a domain query for the wire.
func FromDomainQuery(q domain.Query) QueryRequest {
	return QueryRequest{
		QueryID:          q.ID,
		Text:             q.Text,
		Locale:           q.Locale,
		Metadata:         q.Metadata,
		HopCount:         q.HopsLeft,
		VisitedServerIDs: q.Visited,
		Deadline:         q.Deadline,
	}
}

// ToDomainQuery converts a wire request to a domain query.
func (r QueryRequest) ToDomainQuery() domain.Query {
	return domain.Query{
		ID:       r.QueryID,
		Text:     r.Text,
		Locale:   r.Locale,
		Metadata: r.Metadata,
		HopsLeft: r.HopCount,
		Visited:  r.VisitedServerIDs,
		Deadline: r.Deadline,
	}
}

// FromDomainSummary converts a domain summary for the wire.
func FromDomainSummary(s *domain.ServerSummary) SummaryResponse {
	items := make([]ResultItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, ResultItem{
			Signature: item.Signature,
			Score:     item.Score,
			ServerID:  item.ServerID,
			Snippet:   item.Snippet,
			Timestamp: item.Timestamp,
		})
	}
	return SummaryResponse{
		QueryID:      s.QueryID,
		Items:        items,
		Provenance:   s.Provenance,
		Completeness: string(s.Completeness),
		Unresponsive: s.Unresponsive,
	}
}

// ToDomainSummary converts a wire response to a domain summary.
func (r SummaryResponse) ToDomainSummary() *domain.ServerSummary {
	items := make([]domain.ResultItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, domain.ResultItem{
			Signature: item.Signature,
			Score:     item.Score,
			ServerID:  item.ServerID,
			Snippet:   item.Snippet,
			Timestamp: item.Timestamp,
		})
	}
	return &domain.ServerSummary{
		QueryID:      r.QueryID,
		Items:        items,
		Provenance:   r.Provenance,
		Completeness: domain.Completeness(r.Completeness),
		Unresponsive: r.Unresponsive,
	}
}
