package token

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/crypto"
	"github.com/fmitra/otpkeeper/internal/entropy"
)

const (
	defaultTokenExpiry = time.Minute * 15
	defaultIssuer      = "otpkeeper"
	secretLen          = 64
)

// NewService returns a new TokenService. Without a configured secret,
// tokens are signed with a random per-process secret.
func NewService(options ...ConfigOption) (keeper.TokenService, error) {
	s := service{
		logger:      log.NewNopLogger(),
		tokenExpiry: defaultTokenExpiry,
		issuer:      defaultIssuer,
		randBytes:   crypto.Bytes,
	}

	s.entropy = entropy.New()

	for _, opt := range options {
		opt(&s)
	}

	if len(s.secret) == 0 {
		secret, err := s.randBytes(secretLen)
		if err != nil {
			return nil, errors.Wrap(err, "cannot generate signing secret")
		}
		s.secret = secret
	}

	return &s, nil
}

// ConfigOption configures the service.
type ConfigOption func(*service)

// WithLogger configures the service with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(s *service) {
		s.logger = l
	}
}

// WithEntropy configures the service with a source for token IDs.
func WithEntropy(e ulid.MonotonicReader) ConfigOption {
	return func(s *service) {
		s.entropy = e
	}
}

// WithTokenExpiry defines how long tokens are valid for.
// The default value is 15 minutes.
func WithTokenExpiry(expiresIn time.Duration) ConfigOption {
	return func(s *service) {
		if expiresIn > 0 {
			s.tokenExpiry = expiresIn
		}
	}
}

// WithSecret configures the service with a secret value
// for signing functions.
func WithSecret(secret string) ConfigOption {
	return func(s *service) {
		s.secret = []byte(secret)
	}
}

// WithIssuer is the issuer identity for the JWT
// token.
func WithIssuer(issuer string) ConfigOption {
	return func(s *service) {
		s.issuer = issuer
	}
}
