package migration

import (
	"database/sql"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/oklog/ulid/v2"

	"github.com/fmitra/otpkeeper/internal/entropy"
)

const (
	defaultLockTimeout  = 10 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// NewRunner returns a new migration Runner.
func NewRunner(options ...ConfigOption) *Runner {
	r := Runner{
		logger:       log.NewNopLogger(),
		entropy:      entropy.New(),
		lockTimeout:  defaultLockTimeout,
		pollInterval: defaultPollInterval,
	}

	for _, opt := range options {
		opt(&r)
	}

	return &r
}

// ConfigOption configures the Runner.
type ConfigOption func(*Runner)

// WithLogger configures the runner with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithDB configures the runner with the database to migrate.
func WithDB(db *sql.DB) ConfigOption {
	return func(r *Runner) {
		r.db = db
	}
}

// WithEntropy configures the runner with a source for log IDs.
func WithEntropy(e ulid.MonotonicReader) ConfigOption {
	return func(r *Runner) {
		r.entropy = e
	}
}

// WithMigrations registers migrations with the runner.
func WithMigrations(m ...Migration) ConfigOption {
	return func(r *Runner) {
		r.migrations = append(r.migrations, m...)
	}
}

// WithLockFile sets the file guarding concurrent runs.
func WithLockFile(path string) ConfigOption {
	return func(r *Runner) {
		r.lockPath = path
	}
}

// WithLockTimeout sets how long to wait for the lock.
func WithLockTimeout(d time.Duration) ConfigOption {
	return func(r *Runner) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}
