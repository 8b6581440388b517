package driven

import "context"

// EmbeddingPayload is what the downstream indexing engine consumes for
// one admitted document.
type EmbeddingPayload struct {
	// DocumentID is the persisted document id.
	DocumentID string

	// Signature is the content signature. Delivery is at-least-once;
	// the downstream consumer must be idempotent keyed by signature.
	Signature string

	// Canonical is the cleaned original-language text.
	Canonical string

	// Translated is the English text.
	Translated string
}

// EmbeddingQueue hands admitted documents to the external
// embedding/indexing engine.
type EmbeddingQueue interface {
	// Publish enqueues a payload. At-least-once semantics: a
	// successful return means the payload is durably accepted.
	Publish(ctx context.Context, payload EmbeddingPayload) error

	// Close releases resources.
	Close() error
}
