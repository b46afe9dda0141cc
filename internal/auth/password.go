package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrAdminDisabled = errors.New("admin password not configured")

// PasswordChecker verifies the shared admin password against a bcrypt hash.
type PasswordChecker struct {
	hash []byte
}

// NewPasswordChecker accepts either a bcrypt hash or a plain password, which is
// hashed once at startup so it is never compared in the clear.
func NewPasswordChecker(secret string) (*PasswordChecker, error) {
	if secret == "" {
		return &PasswordChecker{}, nil
	}
	if strings.HasPrefix(secret, "$2") {
		if _, err := bcrypt.Cost([]byte(secret)); err == nil {
			return &PasswordChecker{hash: []byte(secret)}, nil
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &PasswordChecker{hash: hash}, nil
}

// Check returns nil when password matches.
func (c *PasswordChecker) Check(password string) error {
	if len(c.hash) == 0 {
		return ErrAdminDisabled
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password))
}
