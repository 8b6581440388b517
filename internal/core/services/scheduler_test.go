package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
)

// countingOrchestrator records Ingest calls per provider.
type countingOrchestrator struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCountingOrchestrator() *countingOrchestrator {
	return &countingOrchestrator{calls: make(map[string]int)}
}

func (o *countingOrchestrator) Ingest(_ context.Context, providerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[providerID]++
	return nil
}

func (o *countingOrchestrator) IngestAll(_ context.Context) error { return nil }

func (o *countingOrchestrator) Status(_ context.Context, providerID string) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{ProviderID: providerID}, nil
}

func (o *countingOrchestrator) count(providerID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[providerID]
}

func TestSchedulerRunsProvidersOnInterval(t *testing.T) {
	orchestrator := newCountingOrchestrator()
	scheduler := NewFetchScheduler(orchestrator, []domain.Provider{
		{ID: "docs", FetchInterval: 30 * time.Millisecond, Enabled: true},
	}, 2)
	scheduler.tick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	// One immediate run plus at least one interval rerun.
	require.Eventually(t, func() bool {
		return orchestrator.count("docs") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.NoError(t, <-done)
}

func TestSchedulerSkipsDisabledProviders(t *testing.T) {
	orchestrator := newCountingOrchestrator()
	scheduler := NewFetchScheduler(orchestrator, []domain.Provider{
		{ID: "docs", FetchInterval: 10 * time.Millisecond, Enabled: true},
		{ID: "off", FetchInterval: 10 * time.Millisecond, Enabled: false},
	}, 2)
	scheduler.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	require.Eventually(t, func() bool {
		return orchestrator.count("docs") >= 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	<-done

	assert.Zero(t, orchestrator.count("off"))
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	scheduler := NewFetchScheduler(newCountingOrchestrator(), nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	require.NoError(t, scheduler.Stop())
	assert.NoError(t, <-done)
}
