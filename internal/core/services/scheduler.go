package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
	"github.com/kayf-project/retriever/internal/logger"
)

// defaultTick is how often the scheduler checks for due providers.
const defaultTick = time.Second

// FetchScheduler triggers provider fetches on their configured
// intervals. Runs execute on a bounded worker pool; the single-flight
// guarantee itself lives in the Ingestor, the scheduler merely skips
// providers it observes still running.
type FetchScheduler struct {
	orchestrator driving.IngestOrchestrator
	providers    []domain.Provider
	workers      int
	tick         time.Duration

	mu      sync.Mutex
	nextRun map[string]time.Time
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewFetchScheduler creates the scheduler. workers bounds how many
// provider runs execute concurrently.
func NewFetchScheduler(orchestrator driving.IngestOrchestrator, providers []domain.Provider, workers int) *FetchScheduler {
	if workers < 1 {
		workers = 1
	}
	return &FetchScheduler{
		orchestrator: orchestrator,
		providers:    providers,
		workers:      workers,
		tick:         defaultTick,
		nextRun:      make(map[string]time.Time),
	}
}

// Start begins the scheduling loop. Every enabled provider runs once
// immediately, then on its interval. Blocks until the context is
// cancelled or Stop is called.
func (s *FetchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	now := time.Now()
	for _, p := range s.providers {
		if p.Enabled {
			s.nextRun[p.ID] = now
		}
	}
	s.mu.Unlock()

	logger.Info("Scheduler started (%d providers, %d workers)",
		len(s.providers), s.workers)

	sem := make(chan struct{}, s.workers)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.dispatchDue(ctx, sem)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.dispatchDue(ctx, sem)
		}
	}
}

// Stop gracefully shuts down, waiting for in-flight runs.
func (s *FetchScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("Scheduler stopped")
	return nil
}

// dispatchDue starts a run for every provider whose interval has
// elapsed. The next-run slot advances immediately so a slow run cannot
// pile up duplicate triggers behind itself.
func (s *FetchScheduler) dispatchDue(ctx context.Context, sem chan struct{}) {
	now := time.Now()

	for _, provider := range s.providers {
		if !provider.Enabled {
			continue
		}

		s.mu.Lock()
		due, scheduled := s.nextRun[provider.ID]
		if !scheduled || now.Before(due) {
			s.mu.Unlock()
			continue
		}
		s.nextRun[provider.ID] = now.Add(provider.FetchInterval)
		s.mu.Unlock()

		s.wg.Add(1)
		go func(provider domain.Provider) {
			defer s.wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			err := s.orchestrator.Ingest(ctx, provider.ID)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrFetchInProgress):
				logger.Debug("Provider %s still fetching, skipped", provider.ID)
			case errors.Is(err, context.Canceled):
			default:
				logger.Warn("Scheduled fetch for %s failed: %v", provider.ID, err)
			}
		}(provider)
	}
}
