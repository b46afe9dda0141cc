package handlers

import (
	"net/http"

	"github.com/owen-ho/enroot-qr-pairing/internal/middleware"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/utils"

	"go.uber.org/zap"
)

type JoinResponse struct {
	Handle        string `json:"handle"`
	Credential    string `json:"credential"`
	Paired        bool   `json:"paired"`
	PartnerHandle string `json:"partnerHandle,omitempty"`
}

type StatusResponse struct {
	Handle        string `json:"handle"`
	Status        string `json:"status"`
	Paired        bool   `json:"paired"`
	PartnerHandle string `json:"partnerHandle,omitempty"`
}

type UnpairResponse struct {
	Paired        bool   `json:"paired"`
	PartnerHandle string `json:"partnerHandle,omitempty"`
}

type ParticipantHandler struct {
	Engine   ParticipantService
	Notifier Notifier
	Logger   *zap.Logger
}

// JoinHandler admits a new participant and tries to pair it straight away.
func (h *ParticipantHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	adm, err := h.Engine.Admit(r.Context())
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "join", err)
		return
	}

	resp := JoinResponse{Handle: adm.Participant.Handle, Credential: adm.Credential}
	if adm.Match != nil {
		resp.Paired = true
		resp.PartnerHandle = adm.Match.Partner.Handle
	}
	utils.JSON(w, http.StatusCreated, resp)
}

func (h *ParticipantHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.ParticipantFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	standing, err := h.Engine.Status(r.Context(), p.ID)
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "status", err)
		return
	}

	resp := StatusResponse{Handle: standing.Participant.Handle, Status: string(standing.Participant.Status)}
	if standing.Match != nil {
		resp.Paired = true
		resp.PartnerHandle = standing.Match.Partner.Handle
	}
	utils.JSON(w, http.StatusOK, resp)
}

// UnpairHandler is the participant reporting that its partner left. The
// response says whether it was paired again right away.
func (h *ParticipantHandler) UnpairHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.ParticipantFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.Engine.Unpair(r.Context(), p.ID, pairing.ActorSelf)
	if err != nil {
		writeEngineError(w, loggerOrNop(h.Logger), "unpair", err)
		return
	}

	resp := UnpairResponse{}
	if res.Rematch != nil {
		resp.Paired = true
		resp.PartnerHandle = res.Rematch.Partner.Handle
	}
	utils.JSON(w, http.StatusOK, resp)
}

// EventsHandler upgrades to a websocket that streams the caller's pairing events.
func (h *ParticipantHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.ParticipantFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.Notifier == nil {
		utils.JSONError(w, http.StatusServiceUnavailable, "live updates unavailable")
		return
	}
	h.Notifier.Serve(w, r, p.ID)
}
