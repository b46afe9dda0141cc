package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/owen-ho/enroot-qr-pairing/internal/auth"
	"github.com/owen-ho/enroot-qr-pairing/internal/models"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"go.uber.org/zap"
)

type contextKey string

const participantKey contextKey = "participant"

// TokenVerifier checks participant and admin bearer tokens.
type TokenVerifier interface {
	ParseParticipant(token string) (*auth.ParticipantClaims, error)
	VerifyAdmin(token string) error
}

// ParticipantLookup resolves the participant a token claims to be.
type ParticipantLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Participant, error)
}

// Auth gates routes behind participant or admin credentials.
type Auth struct {
	Tokens       TokenVerifier
	Participants ParticipantLookup
	Logger       *zap.Logger
}

// Participant requires a valid participant token in the Authorization header.
func (a *Auth) Participant(next http.Handler) http.Handler {
	return a.participant(next, false)
}

// ParticipantQuery also accepts the token as a ?token= query parameter, for
// websocket clients that cannot set headers.
func (a *Auth) ParticipantQuery(next http.Handler) http.Handler {
	return a.participant(next, true)
}

func (a *Auth) participant(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil && allowQuery {
			if q := r.URL.Query().Get("token"); q != "" {
				token, err = q, nil
			}
		}
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.Tokens.ParseParticipant(token)
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, "invalid or expired credential")
			return
		}
		id, err := claims.ParticipantID()
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, "invalid or expired credential")
			return
		}

		p, err := a.Participants.GetByID(r.Context(), id)
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			utils.JSONError(w, http.StatusUnauthorized, "unknown participant")
			return
		}
		if err != nil {
			a.logger().Error("failed to load participant for credential", zap.Uint("participant_id", id), zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "failed to verify credential")
			return
		}
		if !p.Active() {
			utils.JSONError(w, http.StatusUnauthorized, "participant has left the event")
			return
		}
		if p.CredentialID == "" || subtle.ConstantTimeCompare([]byte(p.CredentialID), []byte(claims.ID)) != 1 {
			utils.JSONError(w, http.StatusUnauthorized, "credential revoked")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithParticipant(r.Context(), p)))
	})
}

// Admin requires a valid admin token.
func (a *Auth) Admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			utils.JSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err := a.Tokens.VerifyAdmin(token); err != nil {
			if errors.Is(err, auth.ErrNotAdmin) {
				utils.JSONError(w, http.StatusForbidden, "admin access required")
				return
			}
			utils.JSONError(w, http.StatusUnauthorized, "invalid or expired admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func WithParticipant(ctx context.Context, p *models.Participant) context.Context {
	return context.WithValue(ctx, participantKey, p)
}

// ParticipantFrom returns the participant resolved by the Participant gate.
func ParticipantFrom(ctx context.Context) (*models.Participant, bool) {
	p, ok := ctx.Value(participantKey).(*models.Participant)
	return p, ok && p != nil
}
