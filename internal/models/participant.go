package models

import "time"

// ParticipantStatus is the lifecycle state of a participant.
type ParticipantStatus string

const (
	StatusWaiting ParticipantStatus = "waiting"
	StatusPaired  ParticipantStatus = "paired"
	StatusLeft    ParticipantStatus = "left"
)

// Valid reports whether s is one of the enumerated statuses.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusPaired, StatusLeft:
		return true
	}
	return false
}

// Participant is an anonymous event attendee.
type Participant struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Handle       string            `gorm:"column:handle;size:100;uniqueIndex;not null" json:"handle"`
	CredentialID string            `gorm:"column:credential_id;size:64;not null" json:"-"`
	JoinedAt     time.Time         `gorm:"column:joined_at;not null;index" json:"joinedAt"`
	WaitingSince time.Time         `gorm:"column:waiting_since;not null;index" json:"-"`
	Status       ParticipantStatus `gorm:"column:status;size:20;not null;default:waiting;index;check:status IN ('waiting','paired','left')" json:"status"`
	Version      uint              `gorm:"column:version;not null;default:1" json:"-"`
}

// Active reports whether the participant still takes part in matching and listings.
func (p *Participant) Active() bool {
	return p.Status != StatusLeft
}
