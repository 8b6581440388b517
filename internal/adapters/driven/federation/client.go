// Package federation provides the HTTP implementation of the
// peer-to-peer federation client.
package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/federation"
)

// Ensure HTTPClient implements the interface.
var _ driven.FederationClient = (*HTTPClient)(nil)

// DefaultPingTimeout bounds heartbeat round trips independently of the
// per-hop query timeout.
const DefaultPingTimeout = 2 * time.Second

// HTTPClient forwards queries and heartbeats to peers over HTTP.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a federation client. Per-call deadlines come
// from the caller's context; the underlying client sets no global
// timeout so the router's per-hop timeout is authoritative.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		client: &http.Client{},
	}
}

// Forward sends the query to the neighbor at address and returns its
// server summary.
func (c *HTTPClient) Forward(ctx context.Context, address string, query domain.Query) (*domain.ServerSummary, error) {
	reqBody := federation.FromDomainQuery(query)
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		address+federation.QueryPath,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNeighborUnreachable, address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrNeighborUnreachable, address, resp.StatusCode, string(body))
	}

	var summary federation.SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("%w: %s: decode summary: %w",
			domain.ErrNeighborUnreachable, address, err)
	}
	return summary.ToDomainSummary(), nil
}

// Ping checks neighbor liveness.
func (c *HTTPClient) Ping(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+federation.PingPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrNeighborUnreachable, address, err)
	}
	defer resp.Body.Close()

	// Any 2xx counts as alive; the ping handler answers 204.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: status %d",
			domain.ErrNeighborUnreachable, address, resp.StatusCode)
	}
	return nil
}
