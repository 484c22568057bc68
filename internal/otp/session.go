package otp

import (
	"time"
)

// Session binds a resolved secret to the parameters of code
// generation and holds the most recently computed code. A Session
// never refreshes itself, its owner calls Update.
type Session struct {
	key     []byte
	opts    Options
	code    string
	counter uint64
}

// NewSession validates a base32 secret and computes the code for now.
func NewSession(secret string, now time.Time, options ...ConfigOption) (*Session, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}

	s := &Session{
		key:  key,
		opts: NewOptions(options...),
	}
	s.Update(now)

	return s, nil
}

// Update recomputes the code for the window containing now and
// returns it.
func (s *Session) Update(now time.Time) string {
	s.counter = Counter(now.Unix(), s.opts.Period)
	s.code = HOTP(s.key, s.counter, s.opts.Digits, s.opts.Algorithm)
	return s.code
}

// Code returns the most recently computed code.
func (s *Session) Code() string {
	return s.code
}

// Counter returns the TOTP counter the current code was computed for.
func (s *Session) Counter() uint64 {
	return s.counter
}

// Remaining returns the seconds left before the code for now expires.
func (s *Session) Remaining(now time.Time) int {
	return TimeRemaining(now.Unix(), s.opts.Period)
}

// Options returns the code generation parameters of the Session.
func (s *Session) Options() Options {
	return s.opts
}
