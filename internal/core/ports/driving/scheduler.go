package driving

import "context"

// Scheduler drives periodic provider fetches in the background.
type Scheduler interface {
	// Start begins the scheduling loop.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops, waiting for in-flight fetches.
	Stop() error
}
