package routers

import (
	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func AdminRoutes(r *chi.Mux, h *handlers.AdminHandler, gate *middleware.Auth) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.LoginHandler)

		r.Group(func(r chi.Router) {
			r.Use(gate.Admin)
			r.Get("/participants", h.ParticipantsHandler)        // Roster with partner handles
			r.Get("/stats", h.StatsHandler)                      // Population counts
			r.Post("/pair", h.PairHandler)                       // Manual pairing
			r.Delete("/unpair/{pairingId}", h.UnpairHandler)     // Break a pairing, no rematch
			r.Delete("/participants/{id}", h.RemoveHandler)      // Mark a participant as left
			r.Post("/participants/{id}/revoke", h.RevokeHandler) // Invalidate a credential
			r.Post("/reset", h.ResetHandler)                     // Delete everything
		})
	})
}
