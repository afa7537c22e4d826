/**
 * @description
 * HTTP router setup for the billing service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers billing routes.
func NewRouter(h *Handler, jwksURL string, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	r.Route("/internal/billing", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/generate", h.handleGenerate)
		r.Post("/sweeps/overdue", h.handleRunOverdueSweep)
		r.Post("/sweeps/proof-retention", h.handleRunProofRetentionSweep)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Route("/billing/rates", func(r chi.Router) {
			r.Post("/", h.handleSetRate)
			r.Get("/", h.handleListRates)
			r.Get("/active", h.handleGetActiveRate)
		})

		r.Route("/billing/records", func(r chi.Router) {
			r.Post("/generate", h.handleGenerate)
			r.Get("/", h.handleListRecords)
			r.Get("/{id}", h.handleGetRecord)
		})

		r.Route("/billing/proofs", func(r chi.Router) {
			r.Post("/", h.handleSubmitProof)
			r.Get("/", h.handleListProofs)
			r.Post("/{id}/review", h.handleReviewProof)
		})

		r.Route("/billing/qr", func(r chi.Router) {
			r.Post("/", h.handleUploadQR)
			r.Get("/", h.handleListQRs)
			r.Post("/{id}/toggle", h.handleToggleQR)
			r.Delete("/{id}", h.handleDeleteQR)
		})
	})

	return r
}
