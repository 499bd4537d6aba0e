package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes adds every route except the live feed, which Handler
// mounts outside the compression middleware.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", s.HandleSearchQuery)
	mux.HandleFunc("POST /api/search", s.HandleSearch)

	mux.HandleFunc("POST /api/events", s.HandleSubmit)
	mux.HandleFunc("GET /api/events/{id}", s.HandleGetEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.HandleUpdateEvent)

	mux.HandleFunc("GET /api/admin/events", s.requireAdmin(s.HandleListEvents))
	mux.HandleFunc("POST /api/admin/events/{id}/approve", s.requireAdmin(s.HandleApprove))
	mux.HandleFunc("POST /api/admin/events/{id}/reject", s.requireAdmin(s.HandleReject))

	// Previews share the rate limiter and circuit breaker with scheduled
	// imports.
	mux.HandleFunc("GET /api/external/{provider}", s.requireAdmin(s.HandleExternal))

	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}
