package handlers

import (
	"context"
	"net/http"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"
	"github.com/owen-ho/enroot-qr-pairing/internal/pairing"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"
)

// ParticipantService captures the engine operations participants can reach.
type ParticipantService interface {
	Admit(ctx context.Context) (*pairing.Admission, error)
	Status(ctx context.Context, id uint) (*pairing.Standing, error)
	Unpair(ctx context.Context, id uint, actor pairing.Actor) (*pairing.Unpairing, error)
}

// AdminService captures the engine operations behind the admin routes.
type AdminService interface {
	Roster(ctx context.Context) ([]repositories.RosterEntry, error)
	Stats(ctx context.Context) (*pairing.Stats, error)
	AdminPair(ctx context.Context, idA, idB uint) (*models.Pairing, error)
	AdminUnpair(ctx context.Context, pairingID uint) (*models.Pairing, error)
	Remove(ctx context.Context, id uint) error
	RevokeCredential(ctx context.Context, id uint) error
	Reset(ctx context.Context) error
}

type AdminTokenIssuer interface {
	IssueAdmin() (string, error)
}

type PasswordVerifier interface {
	Check(password string) error
}

// Notifier streams pairing events to a participant's websocket.
type Notifier interface {
	Serve(w http.ResponseWriter, r *http.Request, participantID uint)
}

// Pinger reports store availability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
