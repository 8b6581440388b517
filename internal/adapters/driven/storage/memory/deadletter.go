package memory

import (
	"context"
	"sync"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure DeadLetterStore implements the interface.
var _ driven.DeadLetterStore = (*DeadLetterStore)(nil)

// DeadLetterStore is an in-memory implementation of
// driven.DeadLetterStore.
type DeadLetterStore struct {
	mu      sync.RWMutex
	letters []driven.DeadLetter
}

// NewDeadLetterStore creates a new in-memory dead letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{}
}

// Record stores a dead letter.
func (s *DeadLetterStore) Record(_ context.Context, letter driven.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

// List returns dead letters for a provider, newest first.
func (s *DeadLetterStore) List(_ context.Context, providerID string) ([]driven.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []driven.DeadLetter
	for i := len(s.letters) - 1; i >= 0; i-- {
		if providerID == "" || s.letters[i].ProviderID == providerID {
			out = append(out, s.letters[i])
		}
	}
	return out, nil
}
