package password

import (
	"golang.org/x/crypto/bcrypt"

	keeper "github.com/fmitra/otpkeeper"
)

const defaultMinLength = 4

// NewPassword returns a new unlock password policy.
func NewPassword(options ...ConfigOption) keeper.PasswordService {
	p := Password{
		cost:      bcrypt.DefaultCost,
		minLength: defaultMinLength,
		maxLength: maxBytes,
	}

	for _, opt := range options {
		opt(&p)
	}

	return &p
}

// ConfigOption configures the policy.
type ConfigOption func(*Password)

// WithCost sets the bcrypt work factor.
func WithCost(cost int) ConfigOption {
	return func(p *Password) {
		p.cost = cost
	}
}

// WithMinLength sets a minimum password length.
func WithMinLength(length int) ConfigOption {
	return func(p *Password) {
		p.minLength = length
	}
}

// WithMaxLength sets a maximum password length, capped to what
// bcrypt reads.
func WithMaxLength(length int) ConfigOption {
	return func(p *Password) {
		if length <= 0 || length > maxBytes {
			length = maxBytes
		}
		p.maxLength = length
	}
}
