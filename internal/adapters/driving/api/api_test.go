package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storememory "github.com/kayf-project/retriever/internal/adapters/driven/storage/memory"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
	"github.com/kayf-project/retriever/internal/federation"
)

type stubQueryService struct {
	submitErr error
	handleErr error
	lastQuery domain.Query
	summary   *domain.ServerSummary
}

func (s *stubQueryService) Submit(_ context.Context, text, locale string, metadata map[string]string) (*domain.ServerSummary, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidInput)
	}
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.summary, nil
}

func (s *stubQueryService) Handle(_ context.Context, query domain.Query) (*domain.ServerSummary, error) {
	s.lastQuery = query
	if s.handleErr != nil {
		return nil, s.handleErr
	}
	return s.summary, nil
}

type stubIngest struct {
	ingestErr error
	status    driving.IngestStatus
}

func (s *stubIngest) Ingest(_ context.Context, providerID string) error {
	if providerID == "ghost" {
		return fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
	}
	return s.ingestErr
}

func (s *stubIngest) IngestAll(_ context.Context) error { return nil }

func (s *stubIngest) Status(_ context.Context, providerID string) (*driving.IngestStatus, error) {
	if providerID == "ghost" {
		return nil, fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
	}
	status := s.status
	status.ProviderID = providerID
	return &status, nil
}

type stubNeighbors struct {
	nodes []domain.ServerNode
}

func (s *stubNeighbors) Snapshot() []domain.ServerNode { return s.nodes }

func testSummary() *domain.ServerSummary {
	return &domain.ServerSummary{
		QueryID: "q-1",
		Items: []domain.ResultItem{
			{Signature: "sig-a", Score: 0.9, ServerID: "s1", Snippet: "match", Timestamp: time.Now().UTC()},
		},
		Provenance:   []string{"s1"},
		Completeness: domain.SummaryComplete,
	}
}

type harness struct {
	server  *httptest.Server
	queries *stubQueryService
	ingest  *stubIngest
	letters *storememory.DeadLetterStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	queries := &stubQueryService{summary: testSummary()}
	ingest := &stubIngest{}
	letters := storememory.NewDeadLetterStore()
	neighbors := &stubNeighbors{nodes: []domain.ServerNode{
		{ID: "s2", Address: "http://s2.mesh:7680", Liveness: domain.LivenessUp},
	}}

	router := NewRouter(NewHandler(queries, ingest, letters, neighbors))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &harness{server: server, queries: queries, ingest: ingest, letters: letters}
}

func (h *harness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	return resp
}

func TestSearchReturnsSummary(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/search", SearchRequest{Text: "release notes", Locale: "en"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary federation.SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "q-1", summary.QueryID)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "sig-a", summary.Items[0].Signature)
	assert.Equal(t, string(domain.SummaryComplete), summary.Completeness)
}

func TestSearchRejectsEmptyText(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/search", SearchRequest{Locale: "en"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchRejectsMalformedBody(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Post(h.server.URL+"/search", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchTranslationFailure(t *testing.T) {
	h := newHarness(t)
	h.queries.submitErr = fmt.Errorf("%w: gateway offline", domain.ErrQueryTranslation)

	resp := h.post(t, "/search", SearchRequest{Text: "bonjour", Locale: "fr"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFederatedQueryRoundTrip(t *testing.T) {
	h := newHarness(t)

	deadline := time.Now().Add(5 * time.Second).UTC().Truncate(time.Millisecond)
	resp := h.post(t, federation.QueryPath, federation.QueryRequest{
		QueryID:          "q-7",
		Text:             "runbook",
		Locale:           "en",
		HopCount:         2,
		VisitedServerIDs: []string{"s0"},
		Deadline:         deadline,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "q-7", h.queries.lastQuery.ID)
	assert.Equal(t, 2, h.queries.lastQuery.HopsLeft)
	assert.Equal(t, []string{"s0"}, h.queries.lastQuery.Visited)
	assert.True(t, h.queries.lastQuery.Deadline.Equal(deadline))

	var summary federation.SummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "q-1", summary.QueryID)
}

func TestPing(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, federation.PingPath)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, "/healthz")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNeighborsSnapshot(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, "/neighbors")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Neighbors []map[string]any `json:"neighbors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Neighbors, 1)
	assert.Equal(t, "s2", body.Neighbors[0]["id"])
	assert.Equal(t, "up", body.Neighbors[0]["liveness"])
}

func TestTriggerFetch(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/providers/docs/fetch", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = h.post(t, "/providers/ghost/fetch", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	h.ingest.ingestErr = fmt.Errorf("%w: provider docs", domain.ErrFetchInProgress)
	resp = h.post(t, "/providers/docs/fetch", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFetchStatus(t *testing.T) {
	h := newHarness(t)
	h.ingest.status = driving.IngestStatus{DocumentsProcessed: 7, DocumentsAdmitted: 5, ErrorCount: 1}

	resp := h.get(t, "/providers/docs/status")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "docs", body["provider"])
	assert.Equal(t, float64(7), body["processed"])
	assert.Equal(t, float64(5), body["admitted"])
}

func TestDeadLettersFiltered(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.letters.Record(context.Background(), driven.DeadLetter{
		ProviderID: "docs", ExternalRef: "a.md", Stage: "translate", Reason: "gateway offline",
		Attempts: 3, RecordedAt: time.Now(),
	}))
	require.NoError(t, h.letters.Record(context.Background(), driven.DeadLetter{
		ProviderID: "mail", ExternalRef: "msg-1", Stage: "translate", Reason: "gateway offline",
		Attempts: 3, RecordedAt: time.Now(),
	}))

	resp := h.get(t, "/deadletters?provider=docs")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		DeadLetters []map[string]any `json:"deadLetters"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.DeadLetters, 1)
	assert.Equal(t, "a.md", body.DeadLetters[0]["externalRef"])
}
