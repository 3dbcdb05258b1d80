package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/agency-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/agency-pipeline/internal/infra/http/middleware"
)

type routes struct {
	Board  *handlers.BoardHandler
	Leads  *handlers.LeadHandler
	Status *handlers.StatusHandler
	Health *handlers.HealthHandler
}

func newRouter(h routes, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.TenantHeader, middleware.ActorHeader},
	}))

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/public/leads", h.Leads.CaptureLead)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Tenant)

		r.Get("/board", h.Board.GetBoard)
		r.Post("/board/moves", h.Board.Move)

		r.Get("/leads", h.Board.ListLeads)
		r.Patch("/leads/{id}", h.Leads.UpdateLead)
		r.Delete("/leads/{id}", h.Leads.DeleteLead)
		r.Post("/leads/{id}/convert", h.Board.Convert)

		r.Get("/statuses", h.Status.List)
		r.Post("/statuses", h.Status.Create)
		r.Delete("/statuses/{id}", h.Status.Deactivate)
	})
	return r
}
