package domain

import "time"

// RawDocument represents opaque content fetched by a provider adapter.
// It is the adapter's output before cleaning and translation.
type RawDocument struct {
	// ProviderID links to the Provider that produced this document.
	ProviderID string

	// ExternalID is the source-specific identity (path, URL,
	// message id). Restartable fetches key their cursor off it.
	ExternalID string

	// Payload is the raw content, possibly marked up.
	Payload string

	// Locale is the source language tag declared by the provider.
	// Empty means the pipeline should detect it.
	Locale string

	// FetchedAt is when the adapter retrieved the content.
	FetchedAt time.Time
}

// ChangeType represents the type of document change reported by a
// watching provider.
type ChangeType int

const (
	// ChangeCreated indicates new content.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates modified content.
	ChangeUpdated

	// ChangeDeleted indicates removed content. Deletion is an
	// external policy; the pipeline records but does not act on it.
	ChangeDeleted
)

// RawDocumentChange is a change event from a watch-capable provider.
type RawDocumentChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Document is the affected document.
	Document RawDocument
}
