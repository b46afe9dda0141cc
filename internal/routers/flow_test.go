package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/auth"
	"github.com/owen-ho/enroot-qr-pairing/internal/handlers"
	"github.com/owen-ho/enroot-qr-pairing/internal/handles"
	"github.com/owen-ho/enroot-qr-pairing/internal/middleware"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
	"github.com/owen-ho/enroot-qr-pairing/internal/testhelpers"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	issuer := auth.NewIssuer("flow-secret", time.Hour, time.Hour)
	passwords, err := auth.NewPasswordChecker("letmein")
	require.NoError(t, err)

	engine := pairing.New(db, handles.NewGenerator(), issuer)
	gate := &middleware.Auth{Tokens: issuer, Participants: &repositories.ParticipantRepository{DB: db}}

	r := chi.NewRouter()
	ParticipantRoutes(r, &handlers.ParticipantHandler{Engine: engine}, gate)
	AdminRoutes(r, &handlers.AdminHandler{Engine: engine, Tokens: issuer, Passwords: passwords}, gate)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	HealthRoutes(r, &handlers.HealthHandler{DB: sqlDB})
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (s *testServer) join() map[string]any {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/api/join", "", nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return body
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	rec, body := s.do(http.MethodPost, "/api/admin/login", "", map[string]string{"password": "letmein"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return body["token"].(string)
}

func TestParticipantFlow(t *testing.T) {
	s := newTestServer(t)

	alice := s.join()
	assert.Equal(t, false, alice["paired"])

	bob := s.join()
	assert.Equal(t, true, bob["paired"])
	assert.Equal(t, alice["handle"], bob["partnerHandle"])

	rec, status := s.do(http.MethodGet, "/api/status", alice["credential"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paired", status["status"])
	assert.Equal(t, bob["handle"], status["partnerHandle"])

	rec, unpaired := s.do(http.MethodPost, "/api/unpair", alice["credential"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, unpaired["paired"], "the partner just left must not be offered again")

	rec, _ = s.do(http.MethodPost, "/api/unpair", alice["credential"].(string), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	carol := s.join()
	assert.Equal(t, true, carol["paired"])
	assert.Equal(t, alice["handle"], carol["partnerHandle"], "both re-entered together, lower id wins")

	rec, _ = s.do(http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/status", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t)
	a := s.join()
	s.join()
	c := s.join()

	rec, _ := s.do(http.MethodGet, "/api/admin/stats", a["credential"].(string), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "participant credentials are not admin tokens")

	rec, _ = s.do(http.MethodPost, "/api/admin/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := s.adminToken()

	rec, stats := s.do(http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, float64(2), stats["paired"])
	assert.Equal(t, float64(1), stats["waiting"])
	assert.Equal(t, float64(1), stats["activePairings"])

	rec, roster := s.do(http.MethodGet, "/api/admin/participants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := roster["participants"].([]any)
	require.Len(t, entries, 3)

	var pairingID float64
	var waitingID, pairedID float64
	for _, raw := range entries {
		e := raw.(map[string]any)
		if id, ok := e["pairingId"]; ok {
			pairingID = id.(float64)
			pairedID = e["id"].(float64)
		} else {
			waitingID = e["id"].(float64)
		}
	}
	require.NotZero(t, pairingID)

	rec, _ = s.do(http.MethodPost, "/api/admin/pair", token, map[string]any{"idA": waitingID, "idB": pairedID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/admin/pair", token, map[string]any{"idA": waitingID, "idB": waitingID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/unpair/%d", int(pairingID)), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/unpair/%d", int(pairingID)), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, summary := s.do(http.MethodPost, "/api/admin/pair", token, map[string]any{"idA": waitingID, "idB": pairedID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotZero(t, summary["pairingId"])

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/api/admin/participants/%d/revoke", int(waitingID)), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodDelete, "/api/admin/participants/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/admin/reset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/status", c["credential"].(string), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "credentials die with their participant")

	rec, stats = s.do(http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), stats["total"])
}

func TestRevokedCredentialIsRejected(t *testing.T) {
	s := newTestServer(t)
	a := s.join()
	token := s.adminToken()

	rec, roster := s.do(http.MethodGet, "/api/admin/participants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := roster["participants"].([]any)[0].(map[string]any)["id"].(float64)

	rec, _ = s.do(http.MethodPost, fmt.Sprintf("/api/admin/participants/%d/revoke", int(id)), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/status", a["credential"].(string), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
