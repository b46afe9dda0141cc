package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrHandleTaken         = errors.New("handle already taken")
)

// ParticipantRepository is the identity store. It holds no business rules; the
// pairing engine decides every status transition.
type ParticipantRepository struct {
	DB *gorm.DB
}

// WithTx returns a copy of the repository bound to tx.
func (r *ParticipantRepository) WithTx(tx *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: tx}
}

func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	err := r.DB.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrHandleTaken
	}
	return err
}

func (r *ParticipantRepository) GetByID(ctx context.Context, id uint) (*models.Participant, error) {
	var p models.Participant
	err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) FindByHandle(ctx context.Context, handle string) (*models.Participant, error) {
	var p models.Participant
	err := r.DB.WithContext(ctx).First(&p, "handle = ?", handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HandleExists reports whether any participant, including left ones, uses handle.
func (r *ParticipantRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Participant{}).Where("handle = ?", handle).Count(&n).Error
	return n > 0, err
}

// ListActive returns every participant that has not left, oldest first.
func (r *ParticipantRepository) ListActive(ctx context.Context) ([]models.Participant, error) {
	participants := []models.Participant{}
	err := r.DB.WithContext(ctx).
		Where("status <> ?", models.StatusLeft).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error
	return participants, err
}

func (r *ParticipantRepository) SetStatus(ctx context.Context, id uint, status models.ParticipantStatus) error {
	tx := r.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "version": gorm.Expr("version + 1")})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// OldestWaiting returns the longest-waiting participant not in exclude, or nil
// when the waiting pool is empty.
func (r *ParticipantRepository) OldestWaiting(ctx context.Context, exclude ...uint) (*models.Participant, error) {
	var rows []models.Participant
	q := r.DB.WithContext(ctx).Where("status = ?", models.StatusWaiting)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	if err := q.Order("waiting_since ASC, id ASC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// LockForUpdate loads the given participants with row locks, taken in ascending
// id order so concurrent lockers never wait on each other in a cycle. Missing ids
// are simply absent from the result.
func (r *ParticipantRepository) LockForUpdate(ctx context.Context, ids ...uint) (map[uint]*models.Participant, error) {
	var rows []models.Participant
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Participant, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// Claim moves a participant from one status to another only if it is still in
// the expected status. It reports whether the row changed.
func (r *ParticipantRepository) Claim(ctx context.Context, id uint, from, to models.ParticipantStatus) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "version": gorm.Expr("version + 1")})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// ReturnToWaiting puts the given participants back in the waiting pool with a
// fresh queue position.
func (r *ParticipantRepository) ReturnToWaiting(ctx context.Context, at time.Time, ids ...uint) error {
	return r.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id IN ? AND status <> ?", ids, models.StatusLeft).
		Updates(map[string]any{
			"status":        models.StatusWaiting,
			"waiting_since": at,
			"version":       gorm.Expr("version + 1"),
		}).Error
}

func (r *ParticipantRepository) RevokeCredential(ctx context.Context, id uint) error {
	tx := r.DB.WithContext(ctx).Model(&models.Participant{}).
		Where("id = ?", id).
		Update("credential_id", "")
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// CountByStatus returns the number of participants per status.
func (r *ParticipantRepository) CountByStatus(ctx context.Context) (map[models.ParticipantStatus]int64, error) {
	var rows []struct {
		Status models.ParticipantStatus
		Total  int64
	}
	err := r.DB.WithContext(ctx).Model(&models.Participant{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[models.ParticipantStatus]int64{}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *ParticipantRepository) DeleteAll(ctx context.Context) error {
	return r.DB.WithContext(ctx).Where("1 = 1").Delete(&models.Participant{}).Error
}
