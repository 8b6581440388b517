package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.DedupStore    = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore
// and driven.DedupStore. The two share a store so admission and
// persistence see the same signature namespace, mirroring the SQLite
// adapter.
type DocumentStore struct {
	mu          sync.Mutex
	documents   map[string]domain.Document // by id
	bySignature map[string]string          // signature -> document id
	admitted    map[string]string          // signature -> claimed ref
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:   make(map[string]domain.Document),
		bySignature: make(map[string]string),
		admitted:    make(map[string]string),
	}
}

// CheckAndInsert atomically claims a signature for documentRef.
func (s *DocumentStore) CheckAndInsert(_ context.Context, sig, documentRef string) (driven.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.admitted[sig]; ok {
		return driven.Admission{Inserted: false, ExistingRef: existing}, nil
	}
	s.admitted[sig] = documentRef
	return driven.Admission{Inserted: true}, nil
}

// Remove releases a claimed signature.
func (s *DocumentStore) Remove(_ context.Context, sig string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.admitted, sig)
	return nil
}

// SaveDocument stores a new document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.documents[doc.ID] = *doc
	s.bySignature[doc.Signature] = doc.ID
	return nil
}

// GetBySignature retrieves a document by content signature.
func (s *DocumentStore) GetBySignature(_ context.Context, sig string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySignature[sig]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// RefreshMetadata updates origin metadata, bumping the version.
func (s *DocumentStore) RefreshMetadata(_ context.Context, sig string, origin domain.Origin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySignature[sig]
	if !ok {
		return domain.ErrNotFound
	}
	doc := s.documents[id]
	s.documents[id] = doc.RefreshMetadata(origin, time.Now())
	return nil
}

// ListByProvider returns documents ingested from a provider.
func (s *DocumentStore) ListByProvider(_ context.Context, providerID string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.ProviderID == providerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// ListAll returns every stored document. Feeds the keyword search
// engine and tests.
func (s *DocumentStore) ListAll(_ context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	return docs, nil
}
