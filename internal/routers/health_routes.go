package routers

import (
	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(r *chi.Mux, h *handlers.HealthHandler) {
	r.Get("/healthz", h.HealthzHandler)
	r.Handle("/metrics", metrics.Handler())
}
