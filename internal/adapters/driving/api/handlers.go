// Package api exposes the mesh server over HTTP: the caller-facing
// search endpoint, the peer-to-peer federation endpoints, and a small
// operator surface for ingestion and dead letters.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kayf-project/retriever/internal/core/domain"
	"github.com/kayf-project/retriever/internal/core/ports/driven"
	"github.com/kayf-project/retriever/internal/core/ports/driving"
	"github.com/kayf-project/retriever/internal/federation"
	"github.com/kayf-project/retriever/internal/logger"
)

// NeighborLister reports the current neighbor topology and liveness.
type NeighborLister interface {
	Snapshot() []domain.ServerNode
}

// Handler holds the API route handlers.
type Handler struct {
	queries   driving.QueryService
	ingest    driving.IngestOrchestrator
	letters   driven.DeadLetterStore
	neighbors NeighborLister
}

// NewHandler creates a Handler.
func NewHandler(
	queries driving.QueryService,
	ingest driving.IngestOrchestrator,
	letters driven.DeadLetterStore,
	neighbors NeighborLister,
) *Handler {
	return &Handler{
		queries:   queries,
		ingest:    ingest,
		letters:   letters,
		neighbors: neighbors,
	}
}

// SearchRequest is the caller-facing query body.
type SearchRequest struct {
	Text     string            `json:"text"`
	Locale   string            `json:"locale,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Search handles POST /search: a new federated query entering the
// mesh at this server.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed request body"))
		return
	}

	summary, err := h.queries.Submit(r.Context(), req.Text, req.Locale, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, domain.ErrQueryTranslation):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("query could not be translated"))
		default:
			logger.Warn("Search failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, federation.FromDomainSummary(summary))
}

// FederatedQuery handles POST /federation/query: a query forwarded by
// a peer server.
func (h *Handler) FederatedQuery(w http.ResponseWriter, r *http.Request) {
	var req federation.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("malformed query"))
		return
	}

	summary, err := h.queries.Handle(r.Context(), req.ToDomainQuery())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, domain.ErrQueryTranslation):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("query could not be translated"))
		default:
			logger.Warn("Federated query %s failed: %v", req.QueryID, err)
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, federation.FromDomainSummary(summary))
}

// Ping handles GET /federation/ping, the heartbeat target.
func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Neighbors handles GET /neighbors: topology with observed liveness.
func (h *Handler) Neighbors(w http.ResponseWriter, _ *http.Request) {
	nodes := h.neighbors.Snapshot()
	out := make([]map[string]any, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, map[string]any{
			"id":       node.ID,
			"address":  node.Address,
			"liveness": node.Liveness.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"neighbors": out})
}

// TriggerFetch handles POST /providers/{id}/fetch.
func (h *Handler) TriggerFetch(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	err := h.ingest.Ingest(r.Context(), providerID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"provider": providerID})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("unknown provider"))
	case errors.Is(err, domain.ErrFetchInProgress):
		writeJSON(w, http.StatusConflict, errorBody("fetch already in progress"))
	default:
		logger.Warn("Fetch for %s failed: %v", providerID, err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// FetchStatus handles GET /providers/{id}/status.
func (h *Handler) FetchStatus(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	status, err := h.ingest.Status(r.Context(), providerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown provider"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":  status.ProviderID,
		"running":   status.Running,
		"processed": status.DocumentsProcessed,
		"admitted":  status.DocumentsAdmitted,
		"errors":    status.ErrorCount,
	})
}

// DeadLetters handles GET /deadletters with an optional provider
// filter.
func (h *Handler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider")

	letters, err := h.letters.List(r.Context(), providerID)
	if err != nil {
		logger.Warn("Listing dead letters failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	out := make([]map[string]any, 0, len(letters))
	for _, letter := range letters {
		out = append(out, map[string]any{
			"provider":    letter.ProviderID,
			"externalRef": letter.ExternalRef,
			"stage":       letter.Stage,
			"reason":      letter.Reason,
			"attempts":    letter.Attempts,
			"recordedAt":  letter.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"deadLetters": out})
}
