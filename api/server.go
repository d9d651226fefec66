/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/quotations/*     Quotation lifecycle, pricing, export
  /api/materials/*      Materials, price history, estimation
  /api/resources/*      Routing resources and rates
  /api/settings         Calculation settings
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Quotation routes
		r.Route("/quotations", func(r chi.Router) {
			r.Get("/", h.ListQuotations)
			r.Post("/", h.CreateQuotation)
			r.Get("/{id}", h.GetQuotation)
			r.Get("/{id}/lines", h.GetLines)
			r.Put("/{id}/lines", h.ReplaceLines)
			r.Get("/{id}/pricing", h.GetPricing)
			r.Post("/{id}/pricing", h.ComputePricing)
			r.Post("/{id}/finalize", h.Finalize)
			r.Get("/{id}/export/pdf", h.ExportPDF)
			r.Get("/{id}/export/excel", h.ExportExcel)
		})

		// Material routes
		r.Route("/materials", func(r chi.Router) {
			r.Get("/", h.ListMaterials)
			r.Post("/", h.SaveMaterial)
			r.Get("/{id}", h.GetMaterial)
			r.Get("/{id}/prices", h.ListPriceRecords)
			r.Post("/{id}/prices", h.AddPriceRecord)
			r.Post("/{id}/estimate", h.Estimate)
		})

		// Resource routes
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Post("/", h.SaveResource)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
