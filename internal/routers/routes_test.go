package routers

import (
	"net/http"
	"testing"

	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func assertRoutes(t *testing.T, r *chi.Mux, expected map[string]struct{}) {
	t.Helper()
	if err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := method + " " + route
		delete(expected, key)
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	if len(expected) != 0 {
		t.Fatalf("missing routes: %v", expected)
	}
}

func TestParticipantRoutesRegistered(t *testing.T) {
	r := chi.NewRouter()
	ParticipantRoutes(r, &handlers.ParticipantHandler{}, &middleware.Auth{})

	assertRoutes(t, r, map[string]struct{}{
		"POST /api/join":   {},
		"GET /api/status":  {},
		"POST /api/unpair": {},
		"GET /api/ws":      {},
	})
}

func TestAdminRoutesRegistered(t *testing.T) {
	r := chi.NewRouter()
	AdminRoutes(r, &handlers.AdminHandler{}, &middleware.Auth{})

	assertRoutes(t, r, map[string]struct{}{
		"POST /api/admin/login":                    {},
		"GET /api/admin/participants":              {},
		"GET /api/admin/stats":                     {},
		"POST /api/admin/pair":                     {},
		"DELETE /api/admin/unpair/{pairingId}":     {},
		"DELETE /api/admin/participants/{id}":      {},
		"POST /api/admin/participants/{id}/revoke": {},
		"POST /api/admin/reset":                    {},
	})
}

func TestHealthRoutesRegistered(t *testing.T) {
	r := chi.NewRouter()
	HealthRoutes(r, &handlers.HealthHandler{})

	assertRoutes(t, r, map[string]struct{}{
		"GET /healthz": {},
		"GET /metrics": {},
	})
}
