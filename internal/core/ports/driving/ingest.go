package driving

import "context"

// IngestOrchestrator coordinates document ingestion from providers.
type IngestOrchestrator interface {
	// Ingest triggers a fetch-and-process run for a provider.
	// Returns domain.ErrFetchInProgress when a run for the same
	// provider is still in flight (single-flight).
	Ingest(ctx context.Context, providerID string) error

	// IngestAll triggers ingestion for all enabled providers.
	IngestAll(ctx context.Context) error

	// Status returns ingestion status for a provider.
	Status(ctx context.Context, providerID string) (*IngestStatus, error)
}

// IngestStatus represents the current state of an ingestion run.
type IngestStatus struct {
	// ProviderID identifies the provider.
	ProviderID string

	// Running indicates if ingestion is currently in progress.
	Running bool

	// DocumentsProcessed is the count of documents processed.
	DocumentsProcessed int

	// DocumentsAdmitted is the count of documents that won dedup
	// admission and were persisted.
	DocumentsAdmitted int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}
