package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrNotAdmin          = errors.New("token does not carry admin rights")
)

// ParticipantClaims identify a participant. The token ID is the participant's
// stored credential id, so a token stops working once the credential is revoked.
type ParticipantClaims struct {
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// ParticipantID returns the numeric participant id carried in the subject.
func (c *ParticipantClaims) ParticipantID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidClaims
	}
	return uint(id), nil
}

type adminClaims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens for participants and admins.
type Issuer struct {
	secret         []byte
	participantTTL time.Duration
	adminTTL       time.Duration
	now            func() time.Time
}

func NewIssuer(secret string, participantTTL, adminTTL time.Duration) *Issuer {
	return &Issuer{
		secret:         []byte(secret),
		participantTTL: participantTTL,
		adminTTL:       adminTTL,
		now:            time.Now,
	}
}

// IssueParticipant signs the bearer credential handed out at admission.
func (i *Issuer) IssueParticipant(p *models.Participant) (string, error) {
	if p.ID == 0 || p.CredentialID == "" {
		return "", ErrInvalidClaims
	}
	now := i.now()
	claims := ParticipantClaims{
		Handle: p.Handle,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.ID), 10),
			ID:        p.CredentialID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.participantTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseParticipant validates signature and expiry and returns the claims.
func (i *Issuer) ParseParticipant(tokenStr string) (*ParticipantClaims, error) {
	claims := &ParticipantClaims{}
	if err := i.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.ParticipantID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueAdmin signs an admin token.
func (i *Issuer) IssueAdmin() (string, error) {
	now := i.now()
	claims := adminClaims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.adminTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// VerifyAdmin checks that the token is valid and asserts admin rights.
func (i *Issuer) VerifyAdmin(tokenStr string) error {
	claims := &adminClaims{}
	if err := i.parse(tokenStr, claims); err != nil {
		return err
	}
	if !claims.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", ErrMissingAuthHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if token == "" {
		return "", ErrMissingAuthHeader
	}
	return token, nil
}
