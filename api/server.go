/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/structures/*   Fee structure management
  /api/profiles/*     Student fee profiles and derived views
  /api/payments/*     Ledger entries
  /api/classes/*      Class-level reconciliation views

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Fee structure routes
		r.Route("/structures", func(r chi.Router) {
			r.Post("/", h.CreateStructure)
			r.Get("/", h.LookupStructure)
			r.Get("/{id}", h.GetStructure)
			r.Patch("/{id}", h.UpdateStructure)
		})

		// Profile routes
		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", h.CreateProfile)
			r.Post("/bulk", h.BulkCreateProfiles)
			r.Get("/", h.LookupProfile)
			r.Get("/{id}", h.GetProfile)
			r.Patch("/{id}", h.UpdateProfile)
			r.Delete("/{id}", h.DeactivateProfile)
			r.Get("/{id}/status", h.GetProfileStatus)
			r.Get("/{id}/payments", h.GetProfilePayments)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.RecordPayment)
			r.Post("/{id}/verify", h.VerifyPayment)
			r.Post("/{id}/reverse", h.ReversePayment)
		})

		// Class-level reconciliation views
		r.Route("/classes/{classID}", func(r chi.Router) {
			r.Get("/summary", h.GetClassSummary)
			r.Get("/defaulters", h.GetDefaulters)
		})
	})

	return r
}
