// Package lockapi provides an HTTP API for the application lock.
package lockapi

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
)

type service struct {
	logger   log.Logger
	store    keeper.SecretStore
	password keeper.PasswordService
	token    keeper.TokenService
}

// Unlock exchanges the unlock password for a signed session token.
func (s *service) Unlock(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	req, err := decodePasswordRequest(r)
	if err != nil {
		return nil, err
	}

	if !s.store.HasPassword() {
		return nil, keeper.ErrBadRequest("no password is set")
	}

	if !s.store.VerifyPassword(req.Password) {
		level.Info(s.logger).Log(
			"message", "unlock attempt with wrong password",
			"source", "lockapi.Unlock",
		)
		return nil, keeper.ErrInvalidToken("password is incorrect")
	}

	token, err := s.token.Create(ctx)
	if err != nil {
		return nil, err
	}

	signedToken, err := s.token.Sign(ctx, token)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{Token: signedToken}, nil
}

// SetPassword replaces the unlock password and enables locking.
func (s *service) SetPassword(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	req, err := decodePasswordRequest(r)
	if err != nil {
		return nil, err
	}

	if err = s.password.OKForUser(req.Password); err != nil {
		return nil, err
	}

	if err = s.store.SetPassword(req.Password); err != nil {
		return nil, err
	}

	level.Info(s.logger).Log(
		"message", "unlock password changed",
		"session_id", sessionID(r),
		"source", "lockapi.SetPassword",
	)

	return s.locking(), nil
}

// RemovePassword deletes the unlock password and disables locking.
func (s *service) RemovePassword(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	if !s.store.HasPassword() {
		return nil, keeper.ErrNotFound("no password is set")
	}

	if !s.store.RemovePassword() {
		level.Warn(s.logger).Log(
			"message", "password not fully removed",
			"source", "lockapi.RemovePassword",
		)
	}

	level.Info(s.logger).Log(
		"message", "unlock password removed",
		"session_id", sessionID(r),
		"source", "lockapi.RemovePassword",
	)

	return s.locking(), nil
}

// SetLocking turns the application lock on or off. Locking requires
// an unlock password.
func (s *service) SetLocking(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	req, err := decodeLockingRequest(r)
	if err != nil {
		return nil, err
	}

	enabled := *req.Enabled
	if enabled && !s.store.HasPassword() {
		return nil, keeper.ErrBadRequest("a password must be set before enabling locking")
	}

	if err = s.store.SetLockingEnabled(enabled); err != nil {
		return nil, err
	}

	level.Info(s.logger).Log(
		"message", "locking changed",
		"enabled", enabled,
		"session_id", sessionID(r),
		"source", "lockapi.SetLocking",
	)

	return s.locking(), nil
}

// Locking returns the state of the application lock.
func (s *service) Locking(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return s.locking(), nil
}

func (s *service) locking() *LockingResponse {
	return &LockingResponse{
		Enabled:     s.store.IsLockingEnabled(),
		HasPassword: s.store.HasPassword(),
		Locked:      s.store.CanBeLocked(),
	}
}
