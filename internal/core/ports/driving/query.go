package driving

import (
	"context"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// QueryService is the query entry point exposed to external actors.
type QueryService interface {
	// Submit runs a new federated query from this server. Returns
	// the merged summary, or an error wrapping
	// domain.ErrQueryTranslation when the incoming query text could
	// not be translated.
	Submit(ctx context.Context, text, locale string, metadata map[string]string) (*domain.ServerSummary, error)

	// Handle answers a query forwarded by a peer. The query carries
	// its own hop budget and visited set; forwarding obeys both.
	Handle(ctx context.Context, query domain.Query) (*domain.ServerSummary, error)
}
