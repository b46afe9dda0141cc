package routers

import (
	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func ParticipantRoutes(r *chi.Mux, h *handlers.ParticipantHandler, gate *middleware.Auth) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/join", h.JoinHandler) // Admit a new participant

		r.Group(func(r chi.Router) {
			r.Use(gate.Participant)
			r.Get("/status", h.StatusHandler)  // Own status and partner
			r.Post("/unpair", h.UnpairHandler) // Leave the current pairing
		})

		r.With(gate.ParticipantQuery).Get("/ws", h.EventsHandler) // Live pairing events
	})
}
