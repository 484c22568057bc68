// Package password hashes and validates the application unlock password.
package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	keeper "github.com/fmitra/otpkeeper"
)

// maxBytes is the longest input bcrypt reads.
const maxBytes = 72

// Password enforces the unlock password policy.
type Password struct {
	// cost is the bcrypt work factor.
	cost      int
	minLength int
	maxLength int
}

// Hash returns the bcrypt hash stored in the vault password namespace.
func (p *Password) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("cannot hash password: %w", err)
	}

	return hash, nil
}

// Validate compares a candidate with a stored hash. A mismatch is
// reported as an invalid token.
func (p *Password) Validate(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return keeper.ErrInvalidToken("password is incorrect")
	}
	if err != nil {
		return fmt.Errorf("cannot compare password: %w", err)
	}

	return nil
}

// OKForUser tells us if a password may be used to lock the application.
func (p *Password) OKForUser(password string) error {
	if strings.TrimSpace(password) == "" {
		return keeper.ErrInvalidField("password cannot be blank")
	}

	if len(password) < p.minLength {
		return keeper.ErrInvalidField(
			fmt.Sprintf("password must be at least %d characters long", p.minLength),
		)
	}

	if len(password) > p.maxLength {
		return keeper.ErrInvalidField(
			fmt.Sprintf("password cannot be longer than %d characters", p.maxLength),
		)
	}

	return nil
}
