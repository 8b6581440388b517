package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kayf-project/retriever/internal/federation"
)

// NewRouter creates a chi router with all server routes mounted.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Caller-facing search.
	r.Post("/search", h.Search)

	// Peer-to-peer protocol.
	r.Post(federation.QueryPath, h.FederatedQuery)
	r.Get(federation.PingPath, h.Ping)

	// Operator surface.
	r.Get("/healthz", h.Health)
	r.Get("/neighbors", h.Neighbors)
	r.Post("/providers/{id}/fetch", h.TriggerFetch)
	r.Get("/providers/{id}/status", h.FetchStatus)
	r.Get("/deadletters", h.DeadLetters)

	return r
}
