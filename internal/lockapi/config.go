package lockapi

import (
	"github.com/go-kit/kit/log"

	keeper "github.com/fmitra/otpkeeper"
)

// NewService returns a new implementation of keeper.LockAPI.
func NewService(options ...ConfigOption) keeper.LockAPI {
	s := service{
		logger: log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithLogger configures the service with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(s *service) {
		s.logger = l
	}
}

// WithSecretStore configures the service with the vault holding the
// unlock password and locking flag.
func WithSecretStore(store keeper.SecretStore) ConfigOption {
	return func(s *service) {
		s.store = store
	}
}

// WithPasswordService configures the service with a password policy.
func WithPasswordService(p keeper.PasswordService) ConfigOption {
	return func(s *service) {
		s.password = p
	}
}

// WithTokenService configures the service with a TokenService.
func WithTokenService(t keeper.TokenService) ConfigOption {
	return func(s *service) {
		s.token = t
	}
}
