package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPairingNotFound = errors.New("pairing not found")

// RosterEntry is one row of the administrative participant listing.
type RosterEntry struct {
	ID            uint                     `json:"id"`
	Handle        string                   `json:"handle"`
	Status        models.ParticipantStatus `json:"status"`
	JoinedAt      time.Time                `json:"joinedAt"`
	PairingID     *uint                    `json:"pairingId,omitempty"`
	PartnerHandle *string                  `json:"partnerHandle,omitempty"`

	PairedAt   *time.Time `json:"-"`
	PairingAID *uint      `json:"-"`
	PairingBID *uint      `json:"-"`
	PartnerID  *uint      `json:"-"`
}

// PairingRepository is the append-oriented pairing ledger.
type PairingRepository struct {
	DB *gorm.DB
}

// WithTx returns a copy of the repository bound to tx.
func (r *PairingRepository) WithTx(tx *gorm.DB) *PairingRepository {
	return &PairingRepository{DB: tx}
}

// CreateActive records a new active pairing. The caller guarantees neither side
// already has one.
func (r *PairingRepository) CreateActive(ctx context.Context, a, b uint, at time.Time) (*models.Pairing, error) {
	p := &models.Pairing{
		ParticipantAID: a,
		ParticipantBID: b,
		CreatedAt:      at,
		State:          models.PairingActive,
	}
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// Break marks the pairing broken. Breaking an already broken pairing is a no-op.
func (r *PairingRepository) Break(ctx context.Context, id uint, at time.Time) error {
	tx := r.DB.WithContext(ctx).Model(&models.Pairing{}).
		Where("id = ? AND state = ?", id, models.PairingActive).
		Updates(map[string]any{"state": models.PairingBroken, "broken_at": at})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 1 {
		return nil
	}
	_, err := r.GetByID(ctx, id)
	return err
}

func (r *PairingRepository) GetByID(ctx context.Context, id uint) (*models.Pairing, error) {
	var p models.Pairing
	err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPairingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockForUpdate loads a pairing with a row lock.
func (r *PairingRepository) LockForUpdate(ctx context.Context, id uint) (*models.Pairing, error) {
	var rows []models.Pairing
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrPairingNotFound
	}
	return &rows[0], nil
}

// FindActiveFor returns the participant's active pairing, or nil if it has none.
func (r *PairingRepository) FindActiveFor(ctx context.Context, participantID uint) (*models.Pairing, error) {
	var rows []models.Pairing
	err := r.DB.WithContext(ctx).
		Where("(participant_a_id = ? OR participant_b_id = ?) AND state = ?", participantID, participantID, models.PairingActive).
		Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListFor returns the full pairing history of a participant, newest first.
func (r *PairingRepository) ListFor(ctx context.Context, participantID uint) ([]models.Pairing, error) {
	pairings := []models.Pairing{}
	err := r.DB.WithContext(ctx).
		Where("participant_a_id = ? OR participant_b_id = ?", participantID, participantID).
		Order("id DESC").
		Find(&pairings).Error
	return pairings, err
}

const rosterSelect = `
SELECT p.id, p.handle, p.status, p.joined_at,
       pr.id AS pairing_id,
       pr.created_at AS paired_at,
       pr.participant_a_id AS pairing_a_id,
       pr.participant_b_id AS pairing_b_id,
       CASE
         WHEN pr.participant_a_id = p.id THEN pr.participant_b_id
         WHEN pr.participant_b_id = p.id THEN pr.participant_a_id
       END AS partner_id,
       CASE
         WHEN pr.participant_a_id = p.id THEN pb.handle
         WHEN pr.participant_b_id = p.id THEN pa.handle
       END AS partner_handle
FROM participants p
LEFT JOIN pairings pr
  ON (pr.participant_a_id = p.id OR pr.participant_b_id = p.id) AND pr.state = ?
LEFT JOIN participants pa ON pr.participant_a_id = pa.id
LEFT JOIN participants pb ON pr.participant_b_id = pb.id`

const rosterQuery = rosterSelect + `
WHERE p.status <> ?
ORDER BY p.joined_at DESC, p.id DESC`

const standingQuery = rosterSelect + `
WHERE p.id = ?
LIMIT 1`

// ListWithPartnerNames returns every participant that has not left together with
// its partner's handle when paired. Newest participants come first.
func (r *PairingRepository) ListWithPartnerNames(ctx context.Context) ([]RosterEntry, error) {
	entries := []RosterEntry{}
	err := r.DB.WithContext(ctx).
		Raw(rosterQuery, models.PairingActive, models.StatusLeft).
		Scan(&entries).Error
	return entries, err
}

// StandingFor reads one participant with its active pairing and partner in a
// single statement, so the result is never torn by a concurrent unpair.
func (r *PairingRepository) StandingFor(ctx context.Context, participantID uint) (*RosterEntry, error) {
	var rows []RosterEntry
	err := r.DB.WithContext(ctx).
		Raw(standingQuery, models.PairingActive, participantID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrParticipantNotFound
	}
	return &rows[0], nil
}

func (r *PairingRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Pairing{}).Where("state = ?", models.PairingActive).Count(&n).Error
	return n, err
}

func (r *PairingRepository) DeleteAll(ctx context.Context) error {
	return r.DB.WithContext(ctx).Where("1 = 1").Delete(&models.Pairing{}).Error
}
