package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"go.uber.org/zap"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pairing.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pairing.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pairing.ErrInvalidState), errors.Is(err, pairing.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, pairing.ErrHandleGenerationExhausted):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// retryAfter is the hint sent with failures that are safe to resend as is.
const retryAfter = time.Second

func retryable(err error) bool {
	return errors.Is(err, pairing.ErrConflict) || errors.Is(err, pairing.ErrHandleGenerationExhausted)
}

// writeEngineError reports err to the client. Unclassified errors are logged
// and hidden behind a generic message.
func writeEngineError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if retryable(err) {
		utils.JSONRetry(w, status, err.Error(), retryAfter)
		return
	}
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
		utils.JSONError(w, status, op+" failed")
		return
	}
	utils.JSONError(w, status, err.Error())
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
