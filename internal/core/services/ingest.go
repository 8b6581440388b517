package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
	"github.com/kayf-project/retriever/internal/logger"
)

// Ingestor coordinates fetch-and-process runs across providers. One
// run per provider at a time; a second trigger while a run is in
// flight returns domain.ErrFetchInProgress.
type Ingestor struct {
	providers map[string]domain.Provider
	factory   driven.ProviderFactory
	states    driven.ProviderStateStore
	pipeline  *Pipeline
	limiter   *rate.Limiter

	mu     sync.Mutex
	active map[string]*driving.IngestStatus
	last   map[string]*driving.IngestStatus
}

// NewIngestor wires the orchestrator. fetchRate bounds how many fetch
// runs may start per second across all providers; zero disables the
// limit.
func NewIngestor(
	providers []domain.Provider,
	factory driven.ProviderFactory,
	states driven.ProviderStateStore,
	pipeline *Pipeline,
	fetchRate float64,
) *Ingestor {
	byID := make(map[string]domain.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}
	limit := rate.Inf
	if fetchRate > 0 {
		limit = rate.Limit(fetchRate)
	}
	return &Ingestor{
		providers: byID,
		factory:   factory,
		states:    states,
		pipeline:  pipeline,
		limiter:   rate.NewLimiter(limit, 1),
		active:    make(map[string]*driving.IngestStatus),
		last:      make(map[string]*driving.IngestStatus),
	}
}

// Ingest triggers a fetch-and-process run for one provider.
func (s *Ingestor) Ingest(ctx context.Context, providerID string) error {
	provider, ok := s.providers[providerID]
	if !ok {
		return fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
	}
	if !provider.Enabled {
		logger.Debug("Provider %s is disabled, skipping", providerID)
		return nil
	}

	status, err := s.begin(providerID)
	if err != nil {
		return err
	}
	defer s.finish(providerID)

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("fetch rate wait: %w", err)
	}

	return s.run(ctx, provider, status)
}

// IngestAll triggers ingestion for every enabled provider, in
// sequence. Errors are collected so one failing provider never blocks
// the rest.
func (s *Ingestor) IngestAll(ctx context.Context) error {
	var errs []error
	for id, provider := range s.providers {
		if !provider.Enabled {
			continue
		}
		if err := s.Ingest(ctx, id); err != nil {
			if errors.Is(err, domain.ErrFetchInProgress) {
				continue
			}
			errs = append(errs, fmt.Errorf("provider %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Watch subscribes to a provider's change feed, running each created
// or updated document through the pipeline as it arrives. Blocks until
// the context is cancelled or the provider closes the feed. Returns
// domain.ErrUnsupportedType for providers without watch support; those
// rely on interval fetches alone.
func (s *Ingestor) Watch(ctx context.Context, providerID string) error {
	provider, ok := s.providers[providerID]
	if !ok {
		return fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
	}
	if !provider.Enabled {
		logger.Debug("Provider %s is disabled, not watching", providerID)
		return nil
	}

	adapter, err := s.factory.Create(ctx, provider)
	if err != nil {
		return fmt.Errorf("create adapter: %w", err)
	}
	defer adapter.Close()

	if !adapter.Capabilities().SupportsWatch {
		return fmt.Errorf("%w: provider %s cannot watch", domain.ErrUnsupportedType, providerID)
	}

	changes, err := adapter.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch provider %s: %w", providerID, err)
	}

	logger.Info("Watching provider %s for changes", providerID)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			s.applyChange(ctx, provider, change)
		}
	}
}

// WatchAll starts a watch for every enabled watch-capable provider and
// blocks until the context is cancelled.
func (s *Ingestor) WatchAll(ctx context.Context) error {
	var wg sync.WaitGroup
	for id := range s.providers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.Watch(ctx, id)
			if err != nil &&
				!errors.Is(err, domain.ErrUnsupportedType) &&
				!errors.Is(err, context.Canceled) {
				logger.Warn("Watch for provider %s ended: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
	return nil
}

// applyChange feeds one watch event through the pipeline. Deletions
// are recorded only; removal from the store is an operator decision.
func (s *Ingestor) applyChange(ctx context.Context, provider domain.Provider, change domain.RawDocumentChange) {
	if change.Type == domain.ChangeDeleted {
		logger.Debug("Provider %s reported %s deleted", provider.ID, change.Document.ExternalID)
		return
	}

	raw := change.Document
	if raw.Locale == "" {
		raw.Locale = provider.Locale
	}
	if _, err := s.pipeline.Process(ctx, raw); err != nil {
		logger.Debug("Pipeline error for watched %s: %v", raw.ExternalID, err)
	}
}

// Status returns the in-flight status for a provider, or the result of
// its last completed run.
func (s *Ingestor) Status(ctx context.Context, providerID string) (*driving.IngestStatus, error) {
	if _, ok := s.providers[providerID]; !ok {
		return nil, fmt.Errorf("%w: provider %s", domain.ErrNotFound, providerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.active[providerID]; ok {
		snapshot := *status
		return &snapshot, nil
	}
	if status, ok := s.last[providerID]; ok {
		snapshot := *status
		return &snapshot, nil
	}
	return &driving.IngestStatus{ProviderID: providerID}, nil
}

// begin claims the single-flight slot for a provider.
func (s *Ingestor) begin(providerID string) (*driving.IngestStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.active[providerID]; running {
		return nil, fmt.Errorf("%w: provider %s", domain.ErrFetchInProgress, providerID)
	}
	status := &driving.IngestStatus{ProviderID: providerID, Running: true}
	s.active[providerID] = status
	return status, nil
}

// finish releases the slot and archives the run's counters.
func (s *Ingestor) finish(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.active[providerID]
	if !ok {
		return
	}
	delete(s.active, providerID)
	status.Running = false
	s.last[providerID] = status
}

// run performs one fetch-and-process pass over a provider.
func (s *Ingestor) run(ctx context.Context, provider domain.Provider, status *driving.IngestStatus) error {
	adapter, err := s.factory.Create(ctx, provider)
	if err != nil {
		return fmt.Errorf("create adapter: %w", err)
	}
	defer adapter.Close()

	if err := adapter.Validate(ctx); err != nil {
		if errors.Is(err, domain.ErrAuth) {
			// Credential failures are for the operator, not the
			// retry loop.
			logger.Warn("Provider %s credentials rejected: %v", provider.ID, err)
		}
		return fmt.Errorf("validate provider %s: %w", provider.ID, err)
	}

	cursor := ""
	if state, err := s.states.Get(ctx, provider.ID); err == nil {
		cursor = state.Cursor
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load provider state: %w", err)
	}

	logger.Section(fmt.Sprintf("Fetching from %s", provider.ID))
	docs, errs := adapter.Fetch(ctx, cursor)

	newCursor, err := s.consume(ctx, provider, status, docs, errs)
	if err != nil {
		return err
	}

	state := domain.ProviderState{
		ProviderID: provider.ID,
		Cursor:     newCursor,
		LastFetch:  time.Now(),
	}
	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save provider state: %w", err)
	}

	logger.Info("Provider %s: %d processed, %d admitted, %d errors",
		provider.ID, status.DocumentsProcessed, status.DocumentsAdmitted, status.ErrorCount)
	return nil
}

// consume drains the fetch channels, running each raw document through
// the pipeline. Per-document failures are counted and logged; only a
// fetch-level failure aborts the run.
func (s *Ingestor) consume(
	ctx context.Context,
	provider domain.Provider,
	status *driving.IngestStatus,
	docs <-chan domain.RawDocument,
	errs <-chan error,
) (string, error) {
	cursor := ""
	for docs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return cursor, ctx.Err()

		case raw, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			if raw.Locale == "" {
				raw.Locale = provider.Locale
			}
			admitted, err := s.pipeline.Process(ctx, raw)
			s.count(status, admitted, err)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if fc, done := driven.IsFetchComplete(err); done {
				cursor = fc.NewCursor
				continue
			}
			return cursor, fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
	}
	return cursor, nil
}

func (s *Ingestor) count(status *driving.IngestStatus, admitted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status.DocumentsProcessed++
	if admitted {
		status.DocumentsAdmitted++
	}
	if err != nil {
		status.ErrorCount++
		logger.Debug("Pipeline error: %v", err)
	}
}
