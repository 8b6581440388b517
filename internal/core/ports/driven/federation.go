package driven

import (
	"context"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// FederationClient is the peer-to-peer wire protocol as seen from the
// forwarding side. The HTTP adapter implements it; router tests
// substitute in-process stubs.
type FederationClient interface {
	// Forward sends the query to the neighbor at address and returns
	// its server summary. Timeouts and transport failures wrap
	// domain.ErrNeighborUnreachable.
	Forward(ctx context.Context, address string, query domain.Query) (*domain.ServerSummary, error)

	// Ping checks neighbor liveness. A nil return counts as a
	// successful heartbeat.
	Ping(ctx context.Context, address string) error
}
