package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HealthHandler struct {
	DB     Pinger
	Logger *zap.Logger
}

// HealthzHandler answers "ok" while the store is reachable.
func (h *HealthHandler) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			loggerOrNop(h.Logger).Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unavailable"))
			return
		}
	}
	w.Write([]byte("ok"))
}
