package memory

import (
	"context"
	"sync"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure ProviderStateStore implements the interface.
var _ driven.ProviderStateStore = (*ProviderStateStore)(nil)

// ProviderStateStore is an in-memory implementation of
// driven.ProviderStateStore.
type ProviderStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.ProviderState
}

// NewProviderStateStore creates a new in-memory state store.
func NewProviderStateStore() *ProviderStateStore {
	return &ProviderStateStore{
		states: make(map[string]domain.ProviderState),
	}
}

// Save stores or updates provider state.
func (s *ProviderStateStore) Save(_ context.Context, state domain.ProviderState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ProviderID] = state
	return nil
}

// Get retrieves state for a provider.
func (s *ProviderStateStore) Get(_ context.Context, providerID string) (*domain.ProviderState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[providerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}
