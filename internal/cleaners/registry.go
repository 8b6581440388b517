// Package cleaners strips markup and noise from raw provider payloads.
//
// The registry detects the payload's text type (HTML, markdown or
// plain) and dispatches to the matching cleaner, so providers do not
// need to declare their content format up front. Cleaned text is what
// the dedup signature is computed over: the same underlying content
// fetched as HTML by one provider and as markdown by another cleans to
// the same plain text and deduplicates.
package cleaners

import (
	"context"
	"sync"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.CleanerRegistry = (*Registry)(nil)

// Registry dispatches payloads to type-specific cleaners.
type Registry struct {
	mu       sync.RWMutex
	cleaners map[string]driven.Cleaner
	fallback driven.Cleaner
}

// NewRegistry creates a registry with the default cleaners registered.
func NewRegistry() *Registry {
	r := &Registry{
		cleaners: make(map[string]driven.Cleaner),
		fallback: NewPlain(),
	}
	r.Register(NewHTML())
	r.Register(NewMarkdown())
	r.Register(r.fallback)
	return r
}

// Register adds a cleaner to the registry, replacing any existing
// cleaner for the same type.
func (r *Registry) Register(cleaner driven.Cleaner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleaners[cleaner.Type()] = cleaner
}

// Clean detects the payload's text type and strips its markup.
func (r *Registry) Clean(ctx context.Context, payload string) (string, error) {
	textType := DetectType(payload)

	r.mu.RLock()
	cleaner, ok := r.cleaners[textType]
	if !ok {
		cleaner = r.fallback
	}
	r.mu.RUnlock()

	return cleaner.Clean(ctx, payload)
}
