package driven

import (
	"context"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// Admission is the outcome of a dedup admission check.
type Admission struct {
	// Inserted is true when this call won the conditional insert.
	Inserted bool

	// ExistingRef is the document id already holding the signature
	// when Inserted is false.
	ExistingRef string
}

// DedupStore is the content-addressed admission control in front of
// document persistence. CheckAndInsert is the single point in the
// system requiring strict atomicity: concurrent ingestion of
// byte-identical content from two providers or two servers must result
// in exactly one persisted document.
type DedupStore interface {
	// CheckAndInsert atomically claims a signature for documentRef.
	// Exactly one concurrent caller per signature observes
	// Inserted=true; all others receive the existing ref.
	CheckAndInsert(ctx context.Context, sig, documentRef string) (Admission, error)

	// Remove releases a claimed signature. Rolls back an admission
	// whose document could not be persisted, so the content stays
	// admissible. Removing an unclaimed signature is a no-op.
	Remove(ctx context.Context, sig string) error
}

// DocumentStore persists documents. Backed by SQLite.
// Content is immutable once persisted; only metadata updates are
// allowed, producing a new version under the same signature.
type DocumentStore interface {
	// SaveDocument stores a new document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetBySignature retrieves a document by content signature.
	// Returns domain.ErrNotFound if absent.
	GetBySignature(ctx context.Context, sig string) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// RefreshMetadata updates origin metadata for the document with
	// the given signature, bumping its version. Content fields are
	// never touched.
	RefreshMetadata(ctx context.Context, sig string, origin domain.Origin) error

	// ListByProvider returns documents ingested from a provider.
	ListByProvider(ctx context.Context, providerID string) ([]domain.Document, error)
}

// ProviderStateStore persists fetch cursors per provider.
type ProviderStateStore interface {
	// Get returns the state for a provider, or domain.ErrNotFound.
	Get(ctx context.Context, providerID string) (*domain.ProviderState, error)

	// Save stores the state for a provider.
	Save(ctx context.Context, state domain.ProviderState) error
}
