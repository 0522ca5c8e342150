/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/shifts/*      Shift recording, correction, close
  /api/approvals     Bulk approval re-aggregation
  /api/teams/*       Deduplication sweeps
  /api/employees/*   Aggregates, audit, manual override
  /api/holidays/*    Legal-holiday calendar

SECURITY NOTE:
  No authentication middleware; auth and sessions live in the surrounding
  product, in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.RecordShift)
			r.Get("/{id}", h.GetShift)
			r.Get("/{id}/segments", h.GetShiftSegments)
			r.Put("/{id}", h.CorrectShift)
			r.Post("/{id}/close", h.CloseShift)
		})

		// Bulk approval
		r.Post("/approvals", h.ApproveBatch)

		// Team maintenance
		r.Route("/teams", func(r chi.Router) {
			r.Post("/{id}/dedupe", h.DedupeTeam)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/aggregates", h.ListAggregates)
			r.Get("/{id}/audit", h.AuditEmployee)
			r.Put("/{id}/aggregates/{date}/override", h.OverrideAggregate)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{date}", h.DeleteHoliday)
		})
	})

	return r
}
