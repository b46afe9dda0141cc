package pairing

import (
	"errors"
	"fmt"
)

// Every engine error wraps one of these. Callers branch with errors.Is.
var (
	ErrNotFound                  = errors.New("not found")
	ErrNoActivePairing           = fmt.Errorf("%w: no active pairing", ErrNotFound)
	ErrInvalidInput              = errors.New("invalid input")
	ErrInvalidState              = errors.New("invalid state")
	ErrHandleGenerationExhausted = errors.New("handle generation exhausted")
	ErrConflict                  = errors.New("conflict, retry the request")
)

func participantNotFound(id uint) error {
	return fmt.Errorf("participant %d: %w", id, ErrNotFound)
}

func pairingNotFound(id uint) error {
	return fmt.Errorf("pairing %d: %w", id, ErrNotFound)
}
