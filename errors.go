package otpkeeper

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

const (
	// EInvalidToken represents an invalid OTP secret or unlock session.
	EInvalidToken ErrCode = "invalid_token"
	// EInvalidField represents an entity field error in a repository.
	EInvalidField ErrCode = "invalid_field"
	// ENotFound represents a missing entity.
	ENotFound ErrCode = "not_found"
	// EBadRequest represents a malformed request to the local API.
	EBadRequest ErrCode = "bad_request"
	// ELocked represents an operation attempted while the application
	// is locked.
	ELocked ErrCode = "locked"
	// EThrottle represents a rate limited request.
	EThrottle ErrCode = "throttle"
	// EInternal represents an internal error outside of our domain.
	EInternal ErrCode = "internal"
)

// Error represents an error within the otpkeeper domain.
type Error interface {
	Error() string
	Code() ErrCode
	Message() string
}

// ErrCode is a machine readable code representing
// an error within the otpkeeper domain.
type ErrCode string

// ErrInvalidToken represents an OTP secret that cannot be decoded
// or an unlock session token that failed validation.
type ErrInvalidToken string

func (e ErrInvalidToken) Code() ErrCode   { return EInvalidToken }
func (e ErrInvalidToken) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrInvalidToken) Message() string { return capitalize(string(e)) }

// ErrInvalidField represents an error related to missing or invalid entity fields.
type ErrInvalidField string

func (e ErrInvalidField) Code() ErrCode   { return EInvalidField }
func (e ErrInvalidField) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrInvalidField) Message() string { return capitalize(string(e)) }

// ErrNotFound represents a missing account, provider or vault entry.
type ErrNotFound string

func (e ErrNotFound) Code() ErrCode   { return ENotFound }
func (e ErrNotFound) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrNotFound) Message() string { return capitalize(string(e)) }

// ErrBadRequest represents a malformed request.
type ErrBadRequest string

func (e ErrBadRequest) Code() ErrCode   { return EBadRequest }
func (e ErrBadRequest) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrBadRequest) Message() string { return capitalize(string(e)) }

// ErrLocked represents a request made while locking is enabled
// and no valid unlock session was presented.
type ErrLocked string

func (e ErrLocked) Code() ErrCode   { return ELocked }
func (e ErrLocked) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrLocked) Message() string { return capitalize(string(e)) }

// ErrThrottle represents a rate limited request.
type ErrThrottle string

func (e ErrThrottle) Code() ErrCode   { return EThrottle }
func (e ErrThrottle) Error() string   { return fmt.Sprintf("[%s] %s", e.Code(), string(e)) }
func (e ErrThrottle) Message() string { return capitalize(string(e)) }

// DomainError returns a domain error if available.
func DomainError(err error) Error {
	if err == nil {
		return nil
	}

	var e Error
	if errors.As(err, &e) {
		return e
	}

	if e, ok := pkgerrors.Cause(err).(Error); ok {
		return e
	}

	return nil
}

// ErrorCode returns the code associated with a domain error.
// If an error is not part of the otpkeeper domain, it
// returns Internal.
func ErrorCode(err error) ErrCode {
	if err == nil {
		return ErrCode("")
	}

	e := DomainError(err)
	if e == nil {
		return EInternal
	}

	return e.Code()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
