package credential

import (
	"time"

	"github.com/go-kit/kit/log"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/otp"
)

// NewService returns a new credential Service.
func NewService(options ...ConfigOption) *Service {
	s := Service{
		logger: log.NewNopLogger(),
		clock:  time.Now,
	}

	for _, opt := range options {
		opt(&s)
	}

	return &s
}

// ConfigOption configures the Service.
type ConfigOption func(*Service)

// WithLogger configures the service with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithRepoManager configures the service with the metadata storage.
func WithRepoManager(repoMngr keeper.RepositoryManager) ConfigOption {
	return func(s *Service) {
		s.repoMngr = repoMngr
	}
}

// WithSecretStore configures the service with the secret vault.
func WithSecretStore(store keeper.SecretStore) ConfigOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithOTPOptions sets the code generation parameters of every Account.
func WithOTPOptions(options ...otp.ConfigOption) ConfigOption {
	return func(s *Service) {
		s.otpOpts = append(s.otpOpts, options...)
	}
}

// WithClock overrides the time source used to compute codes.
func WithClock(clock func() time.Time) ConfigOption {
	return func(s *Service) {
		s.clock = clock
	}
}
