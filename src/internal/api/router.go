package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a new HTTP router with all API endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(Logger)
	r.Use(PrivateSubnetOnly)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/interfaces", h.GetInterfaces)
		r.Get("/select", h.Select)
		r.Get("/tables", h.GetTables)
		r.Get("/tables/check", h.CheckTables)
		r.Get("/endpoints", h.GetEndpoints)
		r.Get("/health", h.CheckHealth)
	})

	r.Get("/health", h.CheckHealth)

	return r
}
