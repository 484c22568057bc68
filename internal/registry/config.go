package registry

import (
	"time"

	"github.com/go-kit/kit/log"

	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/otp"
)

const defaultInterval = time.Second

// NewRegistry returns a new, empty Registry.
func NewRegistry(options ...ConfigOption) *Registry {
	r := Registry{
		logger:    log.NewNopLogger(),
		interval:  defaultInterval,
		period:    otp.DefaultPeriod,
		clock:     time.Now,
		alive:     true,
		listeners: make(map[int]func(int)),
	}

	for _, opt := range options {
		opt(&r)
	}

	if r.svc != nil {
		r.period = r.svc.Period()
	}
	r.counter = r.period

	return &r
}

// ConfigOption configures the Registry.
type ConfigOption func(*Registry)

// WithLogger configures the registry with a logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithService configures the registry with the credential Service
// used to load, search and remove Accounts.
func WithService(svc *credential.Service) ConfigOption {
	return func(r *Registry) {
		r.svc = svc
	}
}

// WithInterval sets the countdown tick interval.
func WithInterval(d time.Duration) ConfigOption {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithClock overrides the time source of the countdown.
func WithClock(clock func() time.Time) ConfigOption {
	return func(r *Registry) {
		r.clock = clock
	}
}
