package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced by callers before hashing is attempted
const MinPasswordLength = 8

// ErrPasswordTooShort is returned for passwords under MinPasswordLength
var ErrPasswordTooShort = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)

// PasswordHasher hashes and verifies credentials with bcrypt
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. cost <= 0 selects bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash produces a salted one-way digest of the password
func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the password matches the stored digest. A mismatch
// is a false return, not an error; only a malformed digest errors.
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("comparing password digest: %w", err)
}
