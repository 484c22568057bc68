package secretstore

import (
	"github.com/99designs/keyring"
	"github.com/go-kit/kit/log"

	keeper "github.com/fmitra/otpkeeper"
)

// NewStore returns a new SecretStore. Every namespace defaults to an
// in-memory keyring until a vault is configured with WithRings.
func NewStore(options ...ConfigOption) *Store {
	s := Store{
		logger:   log.NewNopLogger(),
		secrets:  keyring.NewArrayKeyring(nil),
		password: keyring.NewArrayKeyring(nil),
		state:    keyring.NewArrayKeyring(nil),
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the Store.
type ConfigOption func(*Store)

// WithLogger configures the store with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithRings configures the store with the keyrings of each namespace.
func WithRings(r Rings) ConfigOption {
	return func(s *Store) {
		s.secrets = r.Secrets
		s.password = r.Password
		s.state = r.State
	}
}

// WithPassword configures the store with a PasswordService used to
// hash the unlock password.
func WithPassword(p keeper.PasswordService) ConfigOption {
	return func(s *Store) {
		s.hasher = p
	}
}
