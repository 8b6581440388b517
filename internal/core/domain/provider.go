package domain

import "time"

// DedupScope determines whether deduplication applies globally or only
// within one provider.
type DedupScope string

const (
	// ScopeStrict deduplicates across all providers. Shared content
	// is stored once regardless of which provider fetched it.
	ScopeStrict DedupScope = "strict"

	// ScopeProvider deduplicates only within the same provider.
	ScopeProvider DedupScope = "provider"
)

// Valid reports whether the scope is a known value.
func (s DedupScope) Valid() bool {
	return s == ScopeStrict || s == ScopeProvider
}

// Provider describes one configured external data source.
type Provider struct {
	// ID is the unique identifier for the provider.
	ID string

	// Type is the adapter type identifier (filesystem, web, github).
	Type string

	// FetchInterval is how often the scheduler triggers a fetch.
	FetchInterval time.Duration

	// Locale is the declared source language tag, if known.
	Locale string

	// Settings contains adapter-specific configuration.
	Settings map[string]any

	// Enabled gates scheduling without removing the provider.
	Enabled bool
}

// ProviderState tracks fetch progress for a provider.
type ProviderState struct {
	// ProviderID links to the Provider.
	ProviderID string

	// Cursor is the opaque resume position for incremental fetches.
	Cursor string

	// LastFetch is when the last successful fetch completed.
	LastFetch time.Time
}
