package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/logger"
)

// RouterConfig bounds federated query propagation.
type RouterConfig struct {
	// ServerID is this server's mesh identity.
	ServerID string

	// MaxHops is the hop budget stamped onto queries entering at
	// this server.
	MaxHops int

	// QueryDeadline is the end-to-end budget for a query entering
	// at this server.
	QueryDeadline time.Duration

	// HopTimeout caps each individual neighbor call.
	HopTimeout time.Duration

	// ResultCap truncates the merged summary.
	ResultCap int
}

// Router answers federated queries: local search plus concurrent
// fan-out to live, unvisited neighbors, merged into one deduplicated
// summary. Every summary that can be produced is produced; neighbor
// failures degrade it, only an untranslatable query kills it.
type Router struct {
	cfg        RouterConfig
	translator driven.Translator
	engine     driven.SearchEngine
	client     driven.FederationClient
	registry   *NeighborRegistry
}

// NewRouter wires the query router.
func NewRouter(
	cfg RouterConfig,
	translator driven.Translator,
	engine driven.SearchEngine,
	client driven.FederationClient,
	registry *NeighborRegistry,
) *Router {
	return &Router{
		cfg:        cfg,
		translator: translator,
		engine:     engine,
		client:     client,
		registry:   registry,
	}
}

// Submit runs a new query entering the mesh at this server.
func (r *Router) Submit(ctx context.Context, text, locale string, metadata map[string]string) (*domain.ServerSummary, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidInput)
	}
	if locale == "" {
		locale = "en"
	}

	query := domain.Query{
		ID:       uuid.New().String(),
		Text:     text,
		Locale:   locale,
		Metadata: metadata,
		HopsLeft: r.cfg.MaxHops,
		Visited:  []string{r.cfg.ServerID},
		Deadline: time.Now().Add(r.cfg.QueryDeadline),
	}
	logger.Debug("Query %s submitted (locale=%s, hops=%d)", query.ID, locale, query.HopsLeft)

	return r.execute(ctx, query)
}

// Handle answers a query forwarded by a peer. The query arrives with
// its remaining hop budget and the visited set built up by upstream
// servers.
func (r *Router) Handle(ctx context.Context, query domain.Query) (*domain.ServerSummary, error) {
	if query.ID == "" || query.Text == "" {
		return nil, fmt.Errorf("%w: incomplete query", domain.ErrInvalidInput)
	}
	if query.Locale == "" {
		query.Locale = "en"
	}
	if query.Deadline.IsZero() {
		query.Deadline = time.Now().Add(r.cfg.QueryDeadline)
	}
	logger.Debug("Query %s received (hops=%d, visited=%d)",
		query.ID, query.HopsLeft, len(query.Visited))

	return r.execute(ctx, query)
}

// branchResult is what one concurrent branch (local search or one
// neighbor forward) reports back to the collector.
type branchResult struct {
	neighborID string
	summary    *domain.ServerSummary
	hits       []driven.SearchHit
	err        error
}

func (r *Router) execute(ctx context.Context, query domain.Query) (*domain.ServerSummary, error) {
	searchText, err := r.translateQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithDeadline(ctx, query.Deadline)
	defer cancel()

	targets := r.fanOutTargets(query)
	results := make(chan branchResult, len(targets)+1)

	go func() {
		hits, err := r.engine.Search(ctx, searchText, r.cfg.ResultCap)
		results <- branchResult{hits: hits, err: err}
	}()

	for _, target := range targets {
		go func(target domain.ServerNode) {
			hopCtx, hopCancel := context.WithTimeout(ctx, r.cfg.HopTimeout)
			defer hopCancel()

			summary, err := r.client.Forward(hopCtx, target.Address, query.NextHop(r.cfg.ServerID))
			results <- branchResult{neighborID: target.ID, summary: summary, err: err}
		}(target)
	}

	return r.collect(ctx, query, targets, results)
}

// collect gathers every branch and merges whatever arrived into the
// final summary.
func (r *Router) collect(
	ctx context.Context,
	query domain.Query,
	targets []domain.ServerNode,
	results <-chan branchResult,
) (*domain.ServerSummary, error) {
	var (
		localHits    []driven.SearchHit
		groups       [][]domain.ResultItem
		chains       [][]string
		unresponsive []string
		degraded     bool
	)

	// Every branch is bounded by the deadline context, so each one
	// reports exactly once.
	for i := 0; i < len(targets)+1; i++ {
		res := <-results

		if res.neighborID == "" {
			if res.err != nil {
				logger.Warn("Local search for query %s failed: %v", query.ID, res.err)
				degraded = true
				continue
			}
			localHits = res.hits
			continue
		}

		if res.err != nil {
			logger.Debug("Neighbor %s unresponsive for query %s: %v",
				res.neighborID, query.ID, res.err)
			unresponsive = append(unresponsive, res.neighborID)
			degraded = true
			continue
		}

		groups = append(groups, res.summary.Items)
		chains = append(chains, res.summary.Provenance)
		if res.summary.Completeness == domain.SummaryDegraded {
			degraded = true
			unresponsive = append(unresponsive, res.summary.Unresponsive...)
		}
	}

	localItems := r.localItems(ctx, query, localHits)
	groups = append([][]domain.ResultItem{localItems}, groups...)

	summary := &domain.ServerSummary{
		QueryID:      query.ID,
		Items:        mergeResultItems(groups, r.cfg.ResultCap),
		Provenance:   mergeProvenance(r.cfg.ServerID, len(localItems) > 0, chains),
		Completeness: domain.SummaryComplete,
		Unresponsive: uniqueStrings(unresponsive),
	}
	if degraded {
		summary.Completeness = domain.SummaryDegraded
	}

	logger.Debug("Query %s merged: %d items, %s, provenance=%v",
		query.ID, len(summary.Items), summary.Completeness, summary.Provenance)
	return summary, nil
}

// translateQuery converts the query text into the locale of the local
// corpus. This is the only failure fatal to a whole query.
func (r *Router) translateQuery(ctx context.Context, query domain.Query) (string, error) {
	if query.Locale == "en" {
		return query.Text, nil
	}
	translated, err := r.translator.Translate(ctx, query.Text, query.Locale, "en")
	if err != nil {
		return "", fmt.Errorf("%w: query %s: %w", domain.ErrQueryTranslation, query.ID, err)
	}
	return translated, nil
}

// fanOutTargets selects the neighbors this query is forwarded to:
// live and not yet visited, only while hop budget remains.
func (r *Router) fanOutTargets(query domain.Query) []domain.ServerNode {
	neighbors := r.registry.UpNeighbors()

	if query.HopsLeft <= 0 {
		if len(neighbors) > 0 {
			logger.Debug("Query %s: %v, not forwarding", query.ID, domain.ErrDepthExceeded)
		}
		return nil
	}

	targets := make([]domain.ServerNode, 0, len(neighbors))
	for _, neighbor := range neighbors {
		if neighbor.ID == r.cfg.ServerID || query.HasVisited(neighbor.ID) {
			continue
		}
		targets = append(targets, neighbor)
	}
	if len(targets) == 0 && len(neighbors) > 0 {
		logger.Debug("Query %s: all neighbors visited, not forwarding", query.ID)
	}
	return targets
}

// localItems converts local search hits into result items, with
// snippets translated back into the query locale. A failed snippet
// translation keeps the original text rather than dropping the hit.
func (r *Router) localItems(ctx context.Context, query domain.Query, hits []driven.SearchHit) []domain.ResultItem {
	items := make([]domain.ResultItem, 0, len(hits))
	for _, hit := range hits {
		snippet := hit.Snippet
		if hit.Document.Origin.Locale != query.Locale {
			translated, err := r.translator.Translate(ctx, snippet, hit.Document.Origin.Locale, query.Locale)
			if err != nil {
				logger.Debug("Snippet translation for %s failed: %v", hit.Document.Signature, err)
			} else {
				snippet = translated
			}
		}
		items = append(items, domain.ResultItem{
			Signature: hit.Document.Signature,
			Score:     hit.Score,
			ServerID:  r.cfg.ServerID,
			Snippet:   snippet,
			Timestamp: hit.Document.Origin.Timestamp,
		})
	}
	return items
}
