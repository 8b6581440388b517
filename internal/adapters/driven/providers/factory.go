// Package providers assembles the built-in provider adapters behind a
// single factory keyed by provider type.
package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/kayf-project/retriever/internal/adapters/driven/providers/filesystem"
	"github.com/kayf-project/retriever/internal/adapters/driven/providers/github"
	"github.com/kayf-project/retriever/internal/adapters/driven/providers/web"
	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ProviderFactory = (*Factory)(nil)

// Constructor builds an adapter from provider configuration.
type Constructor func(provider domain.Provider) (driven.ProviderAdapter, error)

// Factory creates provider adapters by type.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates a factory with all built-in adapter types.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register("filesystem", func(p domain.Provider) (driven.ProviderAdapter, error) {
		return filesystem.New(p)
	})
	f.Register("web", func(p domain.Provider) (driven.ProviderAdapter, error) {
		return web.New(p)
	})
	f.Register("github", func(p domain.Provider) (driven.ProviderAdapter, error) {
		return github.New(p)
	})
	return f
}

// Register adds a constructor for a provider type.
func (f *Factory) Register(providerType string, constructor Constructor) {
	f.constructors[providerType] = constructor
}

// Create builds an adapter for the provider.
func (f *Factory) Create(_ context.Context, provider domain.Provider) (driven.ProviderAdapter, error) {
	constructor, ok := f.constructors[provider.Type]
	if !ok {
		return nil, fmt.Errorf("%w: provider type %q", domain.ErrUnsupportedType, provider.Type)
	}
	return constructor(provider)
}

// Types returns the registered adapter type identifiers, sorted.
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
