package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/adapters/driven/search/keyword"
	storememory "github.com/kayf-project/retriever/internal/adapters/driven/storage/memory"
	"github.com/kayf-project/retriever/internal/adapters/driven/translate/static"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/signature"
)

// meshClient routes Forward calls to in-process routers, simulating
// the wire. Individual addresses can be made unreachable or slow.
type meshClient struct {
	mu       sync.Mutex
	targets  map[string]*Router
	down     map[string]bool
	delay    map[string]time.Duration
	forwards []forwardRecord
}

type forwardRecord struct {
	address string
	query   domain.Query
}

func newMeshClient() *meshClient {
	return &meshClient{
		targets: make(map[string]*Router),
		down:    make(map[string]bool),
		delay:   make(map[string]time.Duration),
	}
}

func (c *meshClient) Forward(ctx context.Context, address string, query domain.Query) (*domain.ServerSummary, error) {
	c.mu.Lock()
	c.forwards = append(c.forwards, forwardRecord{address: address, query: query})
	target, ok := c.targets[address]
	down := c.down[address]
	delay := c.delay[address]
	c.mu.Unlock()

	if down || !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNeighborUnreachable, address)
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrNeighborUnreachable, address, ctx.Err())
		case <-time.After(delay):
		}
	}
	return target.Handle(ctx, query)
}

func (c *meshClient) Ping(_ context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down[address] {
		return fmt.Errorf("%w: %s", domain.ErrNeighborUnreachable, address)
	}
	return nil
}

func (c *meshClient) forwardedTo(address string) []domain.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	var queries []domain.Query
	for _, record := range c.forwards {
		if record.address == address {
			queries = append(queries, record.query)
		}
	}
	return queries
}

// mesh assembles in-process servers wired through a meshClient.
type mesh struct {
	translator *static.Translator
	client     *meshClient
	servers    map[string]*meshServer
}

type meshServer struct {
	router   *Router
	registry *NeighborRegistry
	docs     *storememory.DocumentStore
}

func address(serverID string) string {
	return "mesh://" + serverID
}

func newMesh() *mesh {
	return &mesh{
		translator: static.New(),
		client:     newMeshClient(),
		servers:    make(map[string]*meshServer),
	}
}

// addServer registers a server with the given neighbors. Config
// defaults suit fast tests; override via the returned struct's router
// only by re-adding.
func (m *mesh) addServer(id string, neighborIDs []string, cfg RouterConfig) *meshServer {
	if cfg.ServerID == "" {
		cfg.ServerID = id
	}
	if cfg.MaxHops == 0 {
		cfg.MaxHops = 3
	}
	if cfg.QueryDeadline == 0 {
		cfg.QueryDeadline = 2 * time.Second
	}
	if cfg.HopTimeout == 0 {
		cfg.HopTimeout = 300 * time.Millisecond
	}
	if cfg.ResultCap == 0 {
		cfg.ResultCap = 50
	}

	nodes := make([]domain.ServerNode, 0, len(neighborIDs))
	for _, nid := range neighborIDs {
		nodes = append(nodes, domain.ServerNode{ID: nid, Address: address(nid)})
	}
	registry := NewNeighborRegistry(nodes, m.client, time.Minute, 3)

	docs := storememory.NewDocumentStore()
	router := NewRouter(cfg, m.translator, keyword.New(docs), m.client, registry)

	m.client.mu.Lock()
	m.client.targets[address(id)] = router
	m.client.mu.Unlock()

	server := &meshServer{router: router, registry: registry, docs: docs}
	m.servers[id] = server
	return server
}

// seed stores a document directly, bypassing the pipeline.
func (s *meshServer) seed(t *testing.T, providerID, canonical, translated, locale string, ts time.Time) string {
	t.Helper()
	sig := signature.Compute(domain.ScopeStrict, providerID, canonical)
	err := s.docs.SaveDocument(context.Background(), &domain.Document{
		ID:         uuid.New().String(),
		Signature:  sig,
		ProviderID: providerID,
		Canonical:  canonical,
		Translated: translated,
		Origin:     domain.Origin{Timestamp: ts, Locale: locale, ExternalRef: canonical},
		Version:    1,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	})
	require.NoError(t, err)
	return sig
}

func TestRouterLocalOnly(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", nil, RouterConfig{})
	sig := s1.seed(t, "docs", "release checklist for the gateway", "release checklist for the gateway", "en", time.Now())

	summary, err := s1.router.Submit(context.Background(), "checklist", "en", nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, sig, summary.Items[0].Signature)
	assert.Equal(t, "s1", summary.Items[0].ServerID)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
	assert.Equal(t, []string{"s1"}, summary.Provenance)
	assert.Empty(t, summary.Unresponsive)
}

// An English query against a French-only corpus: the query is
// translated for search and the matching snippet translated back.
func TestRouterTranslatesQueryAndSnippet(t *testing.T) {
	m := newMesh()
	m.translator.AddPhrase("fr", "en", "bonjour le monde", "hello world")

	s1 := m.addServer("s1", nil, RouterConfig{})
	s1.seed(t, "notes", "bonjour le monde", "hello world", "fr", time.Now())

	summary, err := s1.router.Submit(context.Background(), "hello", "en", nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, "hello world", summary.Items[0].Snippet)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
	assert.Equal(t, []string{"s1"}, summary.Provenance)
}

func TestRouterFederatesAcrossNeighbors(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{})
	s2 := m.addServer("s2", []string{"s1"}, RouterConfig{})

	sigA := s1.seed(t, "docs", "alpha deployment guide", "alpha deployment guide", "en", time.Now())
	sigB := s2.seed(t, "docs", "beta deployment guide", "beta deployment guide", "en", time.Now())

	summary, err := s1.router.Submit(context.Background(), "deployment guide", "en", nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 2)
	sigs := map[string]bool{}
	for _, item := range summary.Items {
		sigs[item.Signature] = true
	}
	assert.True(t, sigs[sigA])
	assert.True(t, sigs[sigB])
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
	assert.Equal(t, []string{"s1", "s2"}, summary.Provenance)
}

// The same content on two servers must appear once in the merged
// summary. On a score tie the newer sighting wins.
func TestRouterMergeDeduplicatesBySignature(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{})
	s2 := m.addServer("s2", []string{"s1"}, RouterConfig{})

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	sig := s1.seed(t, "docs", "shared incident runbook", "shared incident runbook", "en", older)
	sig2 := s2.seed(t, "docs", "shared incident runbook", "shared incident runbook", "en", newer)
	require.Equal(t, sig, sig2)

	summary, err := s1.router.Submit(context.Background(), "incident runbook", "en", nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, sig, summary.Items[0].Signature)
	assert.Equal(t, "s2", summary.Items[0].ServerID)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
}

// A chain s1 -> s2 -> s3 with a hop budget of one at entry: s2 is
// reached, s3 never is.
func TestRouterHopBudgetBoundsChain(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{MaxHops: 1})
	s2 := m.addServer("s2", []string{"s1", "s3"}, RouterConfig{})
	s3 := m.addServer("s3", []string{"s2"}, RouterConfig{})

	s1.seed(t, "docs", "hop zero payload", "hop zero payload", "en", time.Now())
	s2.seed(t, "docs", "hop one payload", "hop one payload", "en", time.Now())
	s3.seed(t, "docs", "hop two payload", "hop two payload", "en", time.Now())

	summary, err := s1.router.Submit(context.Background(), "payload", "en", nil)
	require.NoError(t, err)

	assert.Len(t, summary.Items, 2)
	assert.Equal(t, []string{"s1", "s2"}, summary.Provenance)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
	assert.Empty(t, m.client.forwardedTo(address("s3")))

	forwarded := m.client.forwardedTo(address("s2"))
	require.Len(t, forwarded, 1)
	assert.Equal(t, 0, forwarded[0].HopsLeft)
}

// A fully connected triangle with a generous hop budget must
// terminate, never revisit a server, and keep the visited set within
// the hop bound.
func TestRouterCycleSafety(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2", "s3"}, RouterConfig{MaxHops: 5})
	s2 := m.addServer("s2", []string{"s1", "s3"}, RouterConfig{})
	s3 := m.addServer("s3", []string{"s1", "s2"}, RouterConfig{})

	s1.seed(t, "docs", "triangle vertex one", "triangle vertex one", "en", time.Now())
	s2.seed(t, "docs", "triangle vertex two", "triangle vertex two", "en", time.Now())
	s3.seed(t, "docs", "triangle vertex three", "triangle vertex three", "en", time.Now())

	summary, err := s1.router.Submit(context.Background(), "triangle vertex", "en", nil)
	require.NoError(t, err)

	assert.Len(t, summary.Items, 3)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)

	m.client.mu.Lock()
	records := append([]forwardRecord(nil), m.client.forwards...)
	m.client.mu.Unlock()

	for _, record := range records {
		target := record.address[len("mesh://"):]
		assert.False(t, record.query.HasVisited(target),
			"query forwarded to already-visited server %s", target)
		assert.LessOrEqual(t, len(record.query.Visited), 5+1)
	}
}

func TestRouterDegradesOnUnreachableNeighbor(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{})
	m.addServer("s2", []string{"s1"}, RouterConfig{})
	s1.seed(t, "docs", "local survivor document", "local survivor document", "en", time.Now())

	m.client.mu.Lock()
	m.client.down[address("s2")] = true
	m.client.mu.Unlock()

	summary, err := s1.router.Submit(context.Background(), "survivor", "en", nil)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, domain.SummaryDegraded, summary.Completeness)
	assert.Equal(t, []string{"s2"}, summary.Unresponsive)
	assert.Equal(t, []string{"s1"}, summary.Provenance)
}

// A neighbor that answers too slowly costs at most the hop timeout;
// local results still come back well before the query deadline.
func TestRouterSlowNeighborTimesOut(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{HopTimeout: 100 * time.Millisecond})
	m.addServer("s2", []string{"s1"}, RouterConfig{})
	s1.seed(t, "docs", "fast local answer", "fast local answer", "en", time.Now())

	m.client.mu.Lock()
	m.client.delay[address("s2")] = 5 * time.Second
	m.client.mu.Unlock()

	start := time.Now()
	summary, err := s1.router.Submit(context.Background(), "answer", "en", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, domain.SummaryDegraded, summary.Completeness)
	assert.Equal(t, []string{"s2"}, summary.Unresponsive)
	assert.Less(t, elapsed, time.Second)
}

// A neighbor already marked DOWN is skipped outright: no forward, no
// timeout wait, and the summary stays complete.
func TestRouterSkipsDownNeighbor(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2"}, RouterConfig{HopTimeout: time.Second})
	m.addServer("s2", []string{"s1"}, RouterConfig{})
	s1.seed(t, "docs", "still reachable content", "still reachable content", "en", time.Now())

	s1.registry.SetLiveness("s2", domain.LivenessDown)

	start := time.Now()
	summary, err := s1.router.Submit(context.Background(), "reachable", "en", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, domain.SummaryComplete, summary.Completeness)
	assert.Empty(t, summary.Unresponsive)
	assert.Empty(t, m.client.forwardedTo(address("s2")))
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestRouterQueryTranslationFailureIsFatal(t *testing.T) {
	docs := storememory.NewDocumentStore()
	registry := NewNeighborRegistry(nil, newMeshClient(), time.Minute, 3)
	router := NewRouter(RouterConfig{
		ServerID:      "s1",
		MaxHops:       3,
		QueryDeadline: time.Second,
		HopTimeout:    200 * time.Millisecond,
		ResultCap:     10,
	}, &failingTranslator{}, keyword.New(docs), newMeshClient(), registry)

	summary, err := router.Submit(context.Background(), "bonjour", "fr", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQueryTranslation))
	assert.Nil(t, summary)
}

func TestRouterRejectsEmptyQuery(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", nil, RouterConfig{})

	_, err := s1.router.Submit(context.Background(), "", "en", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRouterResultCapTruncates(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", nil, RouterConfig{ResultCap: 3})

	for i := 0; i < 10; i++ {
		s1.seed(t, "docs", fmt.Sprintf("common keyword document %d", i),
			fmt.Sprintf("common keyword document %d", i), "en", time.Now())
	}

	summary, err := s1.router.Submit(context.Background(), "keyword", "en", nil)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 3)
}

// Two branches reaching the same dead downstream server must not
// repeat it in the unresponsive list.
func TestRouterSharedUnreachableDownstreamListedOnce(t *testing.T) {
	m := newMesh()
	s1 := m.addServer("s1", []string{"s2", "s3"}, RouterConfig{})
	m.addServer("s2", []string{"s4"}, RouterConfig{})
	m.addServer("s3", []string{"s4"}, RouterConfig{})
	// s4 is configured as a neighbor of both but never comes up.

	s1.seed(t, "docs", "routing table reference", "routing table reference", "en", time.Now())

	summary, err := s1.router.Submit(context.Background(), "routing", "en", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.SummaryDegraded, summary.Completeness)
	assert.Equal(t, []string{"s4"}, summary.Unresponsive)
}
