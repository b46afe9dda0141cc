package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(now time.Time) *Issuer {
	i := NewIssuer("test-secret", 24*time.Hour, 12*time.Hour)
	i.now = func() time.Time { return now }
	return i
}

func TestParticipantTokenRoundTrip(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(now)
	p := &models.Participant{ID: 42, Handle: "happy-turtle", CredentialID: "cred-1"}

	token, err := i.IssueParticipant(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := i.ParseParticipant(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	id, err := claims.ParticipantID()
	if err != nil || id != 42 {
		t.Fatalf("expected participant 42, got %d %v", id, err)
	}
	if claims.ID != "cred-1" || claims.Handle != "happy-turtle" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(24 * time.Hour).Truncate(time.Second)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestIssueParticipantRequiresIdentity(t *testing.T) {
	i := newTestIssuer(time.Now())
	if _, err := i.IssueParticipant(&models.Participant{Handle: "x"}); err != ErrInvalidClaims {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
	if _, err := i.IssueParticipant(&models.Participant{ID: 1}); err != ErrInvalidClaims {
		t.Fatalf("expected ErrInvalidClaims for missing credential id, got %v", err)
	}
}

func TestParseParticipantRejects(t *testing.T) {
	now := time.Now()
	i := newTestIssuer(now)
	p := &models.Participant{ID: 7, Handle: "calm-heron", CredentialID: "c"}

	t.Run("expired", func(t *testing.T) {
		token, _ := i.IssueParticipant(p)
		later := newTestIssuer(now.Add(25 * time.Hour))
		if _, err := later.ParseParticipant(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIssuer("other-secret", time.Hour, time.Hour)
		token, _ := other.IssueParticipant(p)
		if _, err := i.ParseParticipant(token); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("invalid signing method", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate key: %v", err)
		}
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"sub": "7",
			"jti": "c",
			"exp": now.Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(key)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		if _, err := i.ParseParticipant(signed); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("admin token", func(t *testing.T) {
		token, _ := i.IssueAdmin()
		if _, err := i.ParseParticipant(token); err != ErrInvalidClaims {
			t.Fatalf("expected ErrInvalidClaims, got %v", err)
		}
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "jti": "c"})
		signed, _ := token.SignedString([]byte("test-secret"))
		if _, err := i.ParseParticipant(signed); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestAdminToken(t *testing.T) {
	i := newTestIssuer(time.Now())

	token, err := i.IssueAdmin()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := i.VerifyAdmin(token); err != nil {
		t.Fatalf("verify: %v", err)
	}

	participant, _ := i.IssueParticipant(&models.Participant{ID: 1, Handle: "a-b", CredentialID: "c"})
	if err := i.VerifyAdmin(participant); err != ErrNotAdmin {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := i.VerifyAdmin("garbage"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		err    error
	}{
		{name: "missing", header: "", err: ErrMissingAuthHeader},
		{name: "wrong scheme", header: "Token abc", err: ErrMissingAuthHeader},
		{name: "empty bearer", header: "Bearer  ", err: ErrMissingAuthHeader},
		{name: "ok", header: "Bearer abc.def", want: "abc.def"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got, err := BearerToken(req)
			if err != tc.err || got != tc.want {
				t.Fatalf("BearerToken() = %q, %v; want %q, %v", got, err, tc.want, tc.err)
			}
		})
	}
}
