// Package memory provides an in-memory embedding queue for tests and
// deployments with no downstream indexer configured.
package memory

import (
	"context"
	"sync"

	"github.com/kayf-project/retriever/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.EmbeddingQueue = (*Queue)(nil)

// Queue buffers published payloads in memory.
type Queue struct {
	mu       sync.Mutex
	payloads []driven.EmbeddingPayload
}

// New creates an empty in-memory queue.
func New() *Queue {
	return &Queue{}
}

// Publish enqueues a payload.
func (q *Queue) Publish(_ context.Context, payload driven.EmbeddingPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

// Close is a no-op.
func (q *Queue) Close() error {
	return nil
}

// Published returns a copy of everything published so far. Test helper.
func (q *Queue) Published() []driven.EmbeddingPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]driven.EmbeddingPayload, len(q.payloads))
	copy(out, q.payloads)
	return out
}
