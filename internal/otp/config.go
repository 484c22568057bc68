package otp

import (
	"github.com/pquerna/otp"
)

const (
	// DefaultDigits is the length of a generated code.
	DefaultDigits = 6
	// DefaultPeriod is the TOTP window in seconds.
	DefaultPeriod = 30
)

// DefaultAlgorithm is the HMAC algorithm used when none is configured.
const DefaultAlgorithm = otp.AlgorithmSHA1

// Options are the code generation parameters shared by every Session.
type Options struct {
	Digits    int
	Period    int
	Algorithm otp.Algorithm
}

// NewOptions returns Options with RFC 6238 defaults applied before
// any ConfigOption.
func NewOptions(options ...ConfigOption) Options {
	o := Options{
		Digits:    DefaultDigits,
		Period:    DefaultPeriod,
		Algorithm: DefaultAlgorithm,
	}

	for _, opt := range options {
		opt(&o)
	}

	return o
}

// ConfigOption configures code generation.
type ConfigOption func(*Options)

// WithDigits configures the length of generated codes.
func WithDigits(digits int) ConfigOption {
	return func(o *Options) {
		if digits > 0 {
			o.Digits = digits
		}
	}
}

// WithPeriod configures the TOTP window in seconds.
func WithPeriod(period int) ConfigOption {
	return func(o *Options) {
		if period > 0 {
			o.Period = period
		}
	}
}

// WithAlgorithm configures the HMAC algorithm.
func WithAlgorithm(algorithm otp.Algorithm) ConfigOption {
	return func(o *Options) {
		o.Algorithm = algorithm
	}
}
