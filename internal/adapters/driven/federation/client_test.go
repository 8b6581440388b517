package federation

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/adapters/driven/storage/memory"
	"github.com/kayf-project/retriever/internal/adapters/driving/api"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
)

// peerQueryService records the query a peer received and answers with
// a canned summary.
type peerQueryService struct {
	handled *domain.Query
	summary *domain.ServerSummary
}

func (s *peerQueryService) Submit(_ context.Context, text, locale string, _ map[string]string) (*domain.ServerSummary, error) {
	return s.summary, nil
}

func (s *peerQueryService) Handle(_ context.Context, query domain.Query) (*domain.ServerSummary, error) {
	s.handled = &query
	return s.summary, nil
}

type noopIngest struct{}

func (noopIngest) Ingest(_ context.Context, providerID string) error {
	return fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
}
func (noopIngest) IngestAll(_ context.Context) error { return nil }
func (noopIngest) Status(_ context.Context, providerID string) (*driving.IngestStatus, error) {
	return nil, fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
}

type noopNeighbors struct{}

func (noopNeighbors) Snapshot() []domain.ServerNode { return nil }

// newPeerServer runs the real HTTP surface so the client adapter is
// tested against the routes a live neighbor actually serves.
func newPeerServer(t *testing.T, queries *peerQueryService) *httptest.Server {
	t.Helper()
	handler := api.NewHandler(queries, noopIngest{}, memory.NewDeadLetterStore(), noopNeighbors{})
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClientPingLiveServer(t *testing.T) {
	server := newPeerServer(t, &peerQueryService{})
	client := NewHTTPClient()

	err := client.Ping(context.Background(), server.URL)
	require.NoError(t, err)
}

func TestHTTPClientPingUnreachableServer(t *testing.T) {
	server := newPeerServer(t, &peerQueryService{})
	server.Close()
	client := NewHTTPClient()

	err := client.Ping(context.Background(), server.URL)
	require.ErrorIs(t, err, domain.ErrNeighborUnreachable)
}

func TestHTTPClientForwardRoundTrip(t *testing.T) {
	deadline := time.Now().Add(2 * time.Second).Truncate(time.Millisecond)
	queries := &peerQueryService{
		summary: &domain.ServerSummary{
			QueryID: "q-1",
			Items: []domain.ResultItem{{
				Signature: "sig-1",
				Score:     0.75,
				ServerID:  "s2",
				Snippet:   "matched text",
				Timestamp: time.Now().Truncate(time.Millisecond),
			}},
			Provenance:   []string{"s2"},
			Completeness: domain.SummaryComplete,
		},
	}
	server := newPeerServer(t, queries)
	client := NewHTTPClient()

	query := domain.Query{
		ID:       "q-1",
		Text:     "matched",
		Locale:   "en",
		HopsLeft: 2,
		Visited:  []string{"s1"},
		Deadline: deadline,
	}
	summary, err := client.Forward(context.Background(), server.URL, query)
	require.NoError(t, err)

	require.NotNil(t, queries.handled)
	assert.Equal(t, "q-1", queries.handled.ID)
	assert.Equal(t, 2, queries.handled.HopsLeft)
	assert.Equal(t, []string{"s1"}, queries.handled.Visited)
	assert.WithinDuration(t, deadline, queries.handled.Deadline, time.Millisecond)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "sig-1", summary.Items[0].Signature)
	assert.Equal(t, "s2", summary.Items[0].ServerID)
	assert.Equal(t, []string{"s2"}, summary.Provenance)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
}

func TestHTTPClientForwardUnreachableServer(t *testing.T) {
	server := newPeerServer(t, &peerQueryService{})
	server.Close()
	client := NewHTTPClient()

	_, err := client.Forward(context.Background(), server.URL, domain.Query{
		ID: "q-2", Text: "anything", Locale: "en",
	})
	require.ErrorIs(t, err, domain.ErrNeighborUnreachable)
}
