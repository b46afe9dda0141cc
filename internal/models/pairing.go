package models

import "time"

// PairingState is the state of a pairing record. Broken is terminal.
type PairingState string

const (
	PairingActive PairingState = "active"
	PairingBroken PairingState = "broken"
)

// Pairing is one entry of the pairing ledger.
type Pairing struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ParticipantAID uint         `gorm:"column:participant_a_id;not null;index" json:"participantAId"`
	ParticipantBID uint         `gorm:"column:participant_b_id;not null;index" json:"participantBId"`
	CreatedAt      time.Time    `gorm:"column:created_at;not null" json:"createdAt"`
	BrokenAt       *time.Time   `gorm:"column:broken_at" json:"brokenAt,omitempty"`
	State          PairingState `gorm:"column:state;size:20;not null;default:active;index;check:state IN ('active','broken')" json:"state"`

	ParticipantA *Participant `gorm:"foreignKey:ParticipantAID;constraint:OnDelete:CASCADE" json:"-"`
	ParticipantB *Participant `gorm:"foreignKey:ParticipantBID;constraint:OnDelete:CASCADE" json:"-"`
}

// Involves reports whether the participant is one side of the pairing.
func (p *Pairing) Involves(participantID uint) bool {
	return p.ParticipantAID == participantID || p.ParticipantBID == participantID
}

// PartnerOf returns the other side of the pairing, or 0 when the participant is not part of it.
func (p *Pairing) PartnerOf(participantID uint) uint {
	switch participantID {
	case p.ParticipantAID:
		return p.ParticipantBID
	case p.ParticipantBID:
		return p.ParticipantAID
	}
	return 0
}
