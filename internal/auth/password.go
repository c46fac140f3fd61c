package auth

// Event password hashing.
//
// WHY BCRYPT FOR EVENT PASSWORDS?
// An event password is a shared secret handed out to guests, not an account
// credential, but it still ends up in a database backup. bcrypt keeps it
// out of plain text at the cost of one hash per gate check.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. The gate is hit by anonymous
// guests on every upload, so this sits at bcrypt's default rather than the
// higher cost an account login would warrant.
const defaultCost = bcrypt.DefaultCost

// PasswordService hashes and checks event passwords.
//
// It's a struct (not free functions) so that tests can run with bcrypt's
// minimum cost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with the given cost.
// Pass bcrypt.MinCost from tests in other packages.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes an event password. Passwords over 72 bytes are rejected
// because bcrypt would silently truncate them.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether plaintext matches the stored hash.
//
// A malformed hash never matches; the error is returned so callers can log
// it, but the gate decision is already made.
func (p *PasswordService) Matches(hash, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("auth: comparing password hash: %w", err)
	}
}
