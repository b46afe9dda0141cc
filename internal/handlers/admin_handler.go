package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/auth"
	"github.com/owen-ho/enroot-qr-pairing/internal/models"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Password string `json:"password"`
}

type PairRequest struct {
	IDA uint `json:"idA"`
	IDB uint `json:"idB"`
}

type PairedParticipant struct {
	ID     uint   `json:"id"`
	Handle string `json:"handle"`
}

type PairSummary struct {
	PairingID    uint              `json:"pairingId"`
	ParticipantA PairedParticipant `json:"participantA"`
	ParticipantB PairedParticipant `json:"participantB"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type RosterResponse struct {
	Participants []repositories.RosterEntry `json:"participants"`
}

type AdminHandler struct {
	Engine    AdminService
	Tokens    AdminTokenIssuer
	Passwords PasswordVerifier
	Logger    *zap.Logger
}

// LoginHandler exchanges the shared admin password for an admin token.
func (h *AdminHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.Passwords.Check(req.Password); err != nil {
		if errors.Is(err, auth.ErrAdminDisabled) {
			utils.JSONError(w, http.StatusServiceUnavailable, "admin login is disabled")
			return
		}
		loggerOrNop(h.Logger).Warn("admin login rejected", zap.String("remote", r.RemoteAddr))
		utils.JSONError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := h.Tokens.IssueAdmin()
	if err != nil {
		loggerOrNop(h.Logger).Error("failed to issue admin token", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AdminHandler) ParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Engine.Roster(r.Context())
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "list participants", err)
		return
	}
	utils.JSON(w, http.StatusOK, RosterResponse{Participants: roster})
}

func (h *AdminHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Engine.Stats(r.Context())
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "stats", err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) PairHandler(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	p, err := h.Engine.AdminPair(r.Context(), req.IDA, req.IDB)
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "pair", err)
		return
	}
	utils.JSON(w, http.StatusCreated, summarize(p))
}

func (h *AdminHandler) UnpairHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "pairingId")
	if !ok {
		return
	}
	if _, err := h.Engine.AdminUnpair(r.Context(), id); err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "unpair", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"message": "pairing broken", "pairingId": id})
}

// RemoveHandler marks a participant as left.
func (h *AdminHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Engine.Remove(r.Context(), id); err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "remove", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"message": "participant removed", "id": id})
}

func (h *AdminHandler) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Engine.RevokeCredential(r.Context(), id); err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "revoke", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"message": "credential revoked", "id": id})
}

func (h *AdminHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Reset(r.Context()); err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "reset", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "all participants and pairings deleted"})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.JSONError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func summarize(p *models.Pairing) PairSummary {
	s := PairSummary{
		PairingID:    p.ID,
		ParticipantA: PairedParticipant{ID: p.ParticipantAID},
		ParticipantB: PairedParticipant{ID: p.ParticipantBID},
		CreatedAt:    p.CreatedAt,
	}
	if p.ParticipantA != nil {
		s.ParticipantA.Handle = p.ParticipantA.Handle
	}
	if p.ParticipantB != nil {
		s.ParticipantB.Handle = p.ParticipantB.Handle
	}
	return s
}
