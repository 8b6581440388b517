package driven

import (
	"context"
	"time"
)

// DeadLetter records a document that exhausted its retries and is
// excluded from further automatic processing.
type DeadLetter struct {
	// ProviderID is the provider the document came from.
	ProviderID string

	// ExternalRef is the source-specific reference of the document.
	ExternalRef string

	// Stage names the pipeline stage that failed (e.g. "translate").
	Stage string

	// Reason is the final error message.
	Reason string

	// Attempts is how many tries were made before giving up.
	Attempts int

	// RecordedAt is when the document was dead-lettered.
	RecordedAt time.Time
}

// DeadLetterStore persists dead letters for operator inspection.
// Recording never blocks the pipeline for other documents.
type DeadLetterStore interface {
	// Record stores a dead letter.
	Record(ctx context.Context, letter DeadLetter) error

	// List returns dead letters for a provider, newest first.
	// An empty providerID lists all.
	List(ctx context.Context, providerID string) ([]DeadLetter, error)
}
