package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Momo-444/toitureai-api/internal/config"
	"github.com/Momo-444/toitureai-api/internal/infra/http/handlers"
	"github.com/Momo-444/toitureai-api/internal/infra/http/middleware"
	"github.com/Momo-444/toitureai-api/internal/signing"
	"github.com/Momo-444/toitureai-api/internal/usecase"
)

type routes struct {
	health   *handlers.HealthHandler
	leads    *handlers.LeadHandler
	tracking *handlers.TrackingHandler
	devis    *handlers.DevisHandler
	docuseal *handlers.DocuSealHandler
	rapports *handlers.RapportHandler
}

func newRouter(cfg *config.Config, recorder usecase.ErrorRecorder, h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.ExecutionID)
	r.Use(middleware.Recoverer(recorder))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.WebhookSecretHeader},
		MaxAge:         300,
	}))

	r.Get("/", h.health.Root)
	r.Get("/health", h.health.Live)
	r.Get("/ready", h.health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	webhookAuth := middleware.WebhookAuth(cfg.WebhookSecret)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))

		r.Get(strings.TrimPrefix(signing.TrackingPath, "/api/v1"), h.tracking.TrackLead)

		r.With(middleware.WebhookAuth(cfg.WebhookSecret, cfg.DocuSealWebhookSecret)).
			Post("/docuseal/webhook", h.docuseal.Handle)

		r.Group(func(r chi.Router) {
			r.Use(webhookAuth)

			r.Route("/leads", func(r chi.Router) {
				r.Post("/webhook", h.leads.Webhook)
				r.Get("/", h.leads.List)
				r.Get("/stats/hot", h.leads.Hot)
				r.Get("/{id}", h.leads.Get)
				r.Patch("/{id}", h.leads.Update)
				r.Delete("/{id}", h.leads.Delete)
			})

			r.Route("/devis", func(r chi.Router) {
				r.Post("/generate", h.devis.Create)
				r.Get("/lead/{lead_id}", h.devis.ListByLead)
				r.Get("/{id}", h.devis.Get)
				r.Patch("/{id}", h.devis.Update)
				r.Delete("/{id}", h.devis.Delete)
			})

			r.Route("/rapport", func(r chi.Router) {
				r.Post("/generate", h.rapports.Generate)
				r.Get("/", h.rapports.List)
				r.Get("/{id}", h.rapports.Get)
			})
		})
	})

	return r
}
