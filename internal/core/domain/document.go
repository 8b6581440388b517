package domain

import "time"

// Document is the canonical representation of ingested content after
// cleaning, translation and dedup admission. Content is immutable once
// persisted; only metadata may be refreshed, bumping Version.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Signature is the content-derived identifier used for
	// deduplication and provenance backtracking.
	Signature string

	// ProviderID links to the Provider that produced this document.
	ProviderID string

	// Canonical is the cleaned original-language text.
	Canonical string

	// Translated is the English text produced by the translation
	// gateway.
	Translated string

	// Origin describes where and when the content came from.
	Origin Origin

	// Version counts metadata refreshes under the same signature.
	// Starts at 1; content never changes across versions.
	Version int

	// CreatedAt is when the document was first persisted.
	CreatedAt time.Time

	// UpdatedAt is when the metadata was last refreshed.
	UpdatedAt time.Time
}

// Origin carries source-specific provenance for a document.
type Origin struct {
	// Timestamp is when the source produced the content.
	Timestamp time.Time

	// Locale is the detected or declared source language tag.
	Locale string

	// ExternalRef is the source-specific reference (path, URL,
	// message id).
	ExternalRef string
}

// RefreshMetadata returns a copy with updated origin metadata and a
// bumped version. Content fields are carried over untouched.
func (d Document) RefreshMetadata(origin Origin, now time.Time) Document {
	d.Origin = origin
	d.Version++
	d.UpdatedAt = now
	return d
}
