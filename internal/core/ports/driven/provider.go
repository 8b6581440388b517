package driven

import (
	"context"
	"errors"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// ProviderAdapter fetches raw documents from one external data source.
// Each adapter type (filesystem, web, github, etc.) implements this
// interface. Adapters never deduplicate; admission control belongs to
// the dedup store.
type ProviderAdapter interface {
	// Type returns the adapter type identifier.
	Type() string

	// ProviderID returns the configured provider ID.
	ProviderID() string

	// Capabilities returns what this adapter supports.
	Capabilities() ProviderCapabilities

	// Validate checks the adapter is properly configured and
	// authenticated. Returns nil if ready to fetch, wrapping
	// domain.ErrAuth when credentials are rejected.
	Validate(ctx context.Context) error

	// Fetch produces a finite sequence of raw documents starting at
	// cursor. An empty cursor means a full fetch. Both channels
	// close when the sequence ends; a FetchComplete sentinel on the
	// error channel carries the resume cursor.
	Fetch(ctx context.Context, cursor string) (<-chan domain.RawDocument, <-chan error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// ProviderCapabilities describes what an adapter supports.
type ProviderCapabilities struct {
	// SupportsWatch indicates the adapter can push real-time events.
	SupportsWatch bool

	// SupportsCursor indicates Fetch can resume from a cursor and
	// returns an updated one via the FetchComplete sentinel.
	SupportsCursor bool

	// RequiresAuth indicates the adapter needs credentials.
	// False for local adapters like filesystem.
	RequiresAuth bool

	// Locale is the declared source language tag, if the source is
	// monolingual. Empty means per-document detection.
	Locale string

	// SignatureHint names the external-id field the source considers
	// stable, informational only.
	SignatureHint string
}

// FetchComplete is sent on the error channel when a fetch completes
// successfully. Carries the new cursor for the next incremental fetch.
type FetchComplete struct {
	NewCursor string
}

// Error implements the error interface.
// This allows FetchComplete to be sent on the error channel.
func (FetchComplete) Error() string {
	return "fetch complete"
}

// IsFetchComplete checks if an error is actually a successful
// completion. Returns the FetchComplete and true if it is, nil and
// false otherwise.
func IsFetchComplete(err error) (*FetchComplete, bool) {
	var fc *FetchComplete
	if errors.As(err, &fc) {
		return fc, true
	}
	return nil, false
}

// ProviderFactory creates adapters from provider configuration.
type ProviderFactory interface {
	// Create builds an adapter for the provider. Returns
	// domain.ErrUnsupportedType for unknown adapter types.
	Create(ctx context.Context, provider domain.Provider) (ProviderAdapter, error)

	// Types returns the registered adapter type identifiers.
	Types() []string
}
