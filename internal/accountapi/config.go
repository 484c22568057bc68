package accountapi

import (
	"github.com/go-kit/kit/log"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/backup"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/qrcode"
	"github.com/fmitra/otpkeeper/internal/registry"
)

// NewService returns a new implementation of keeper.AccountAPI.
func NewService(options ...ConfigOption) keeper.AccountAPI {
	s := service{
		logger: log.NewNopLogger(),
		qrSize: qrcode.DefaultSize,
	}

	for _, opt := range options {
		opt(&s)
	}

	if s.backup == nil {
		s.backup = backup.NewBackup(s.credentials, s.registry, s.logger)
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

// WithCredentials configures the service with an Account management service.
func WithCredentials(svc *credential.Service) ConfigOption {
	return func(s *service) {
		s.credentials = svc
	}
}

// WithRegistry configures the service with the live Account registry.
func WithRegistry(r *registry.Registry) ConfigOption {
	return func(s *service) {
		s.registry = r
	}
}

// WithBackup configures the service with a backup importer.
func WithBackup(b *backup.Backup) ConfigOption {
	return func(s *service) {
		s.backup = b
	}
}

// WithQRSize configures the pixel size of generated QR codes.
func WithQRSize(size int) ConfigOption {
	return func(s *service) {
		if size > 0 {
			s.qrSize = size
		}
	}
}
