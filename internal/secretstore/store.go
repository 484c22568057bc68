// Package secretstore keeps shared secrets and the unlock password in
// the OS secret vault. Nothing is cached in process so that external
// vault changes are observed on the next call.
package secretstore

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
)

const (
	passwordKey = "password"
	stateKey    = "state"
	stateOn     = "true"
)

// Store is an implementation of keeper.SecretStore.
type Store struct {
	logger   log.Logger
	hasher   keeper.PasswordService
	secrets  keyring.Keyring
	password keyring.Keyring
	state    keyring.Keyring
}

// Lookup returns the secret stored under a token ID.
func (s *Store) Lookup(tokenID string) (string, bool) {
	item, err := s.secrets.Get(tokenID)
	if err != nil {
		s.logFailure(err, "secret lookup failed", "token_id", tokenID)
		return "", false
	}

	return string(item.Data), true
}

// Insert stores a secret with a label readable in vault managers.
func (s *Store) Insert(tokenID, providerName, username, secret string) error {
	err := s.secrets.Set(keyring.Item{
		Key:         tokenID,
		Data:        []byte(secret),
		Label:       fmt.Sprintf("%s OTP (%s)", providerName, username),
		Description: username,
	})
	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot store secret",
			"error", err,
			"token_id", tokenID,
			"source", "secretstore.Insert",
		)
		return fmt.Errorf("cannot store secret: %w", err)
	}

	return nil
}

// Remove deletes the secret stored under a token ID.
func (s *Store) Remove(tokenID string) bool {
	if err := s.secrets.Remove(tokenID); err != nil {
		s.logFailure(err, "cannot remove secret", "token_id", tokenID)
		return false
	}

	return true
}

// ClearAll deletes every stored secret.
func (s *Store) ClearAll() bool {
	keys, err := s.secrets.Keys()
	if err != nil {
		s.logFailure(err, "cannot list secrets")
		return false
	}

	ok := true
	for _, key := range keys {
		if !s.Remove(key) {
			ok = false
		}
	}

	return ok
}

// Password returns the stored unlock password hash.
func (s *Store) Password() (string, bool) {
	item, err := s.password.Get(passwordKey)
	if err != nil {
		s.logFailure(err, "password lookup failed")
		return "", false
	}

	return string(item.Data), true
}

// SetPassword replaces the unlock password and enables locking.
func (s *Store) SetPassword(password string) error {
	if s.hasher == nil {
		return errors.New("no password hasher configured")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("cannot hash password: %w", err)
	}

	s.RemovePassword()

	err = s.password.Set(keyring.Item{
		Key:   passwordKey,
		Data:  hash,
		Label: "OTPKeeper password",
	})
	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot store password",
			"error", err,
			"source", "secretstore.SetPassword",
		)
		return fmt.Errorf("cannot store password: %w", err)
	}

	return s.SetLockingEnabled(true)
}

// HasPassword reports whether an unlock password is stored.
func (s *Store) HasPassword() bool {
	_, ok := s.Password()
	return ok
}

// RemovePassword deletes the unlock password and disables locking.
func (s *Store) RemovePassword() bool {
	removed := true
	if err := s.password.Remove(passwordKey); err != nil {
		s.logFailure(err, "cannot remove password")
		removed = false
	}

	if err := s.SetLockingEnabled(false); err != nil {
		removed = false
	}

	return removed
}

// VerifyPassword compares a candidate with the stored password.
func (s *Store) VerifyPassword(password string) bool {
	hash, ok := s.Password()
	if !ok || s.hasher == nil {
		return false
	}

	return s.hasher.Validate(hash, password) == nil
}

// IsLockingEnabled reports the stored locking flag.
func (s *Store) IsLockingEnabled() bool {
	item, err := s.state.Get(stateKey)
	if err != nil {
		s.logFailure(err, "locking state lookup failed")
		return false
	}

	return string(item.Data) == stateOn
}

// SetLockingEnabled stores the locking flag as "true" or clears it.
func (s *Store) SetLockingEnabled(enabled bool) error {
	var err error
	if enabled {
		err = s.state.Set(keyring.Item{
			Key:   stateKey,
			Data:  []byte(stateOn),
			Label: "OTPKeeper state",
		})
	} else {
		err = s.state.Remove(stateKey)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			err = nil
		}
	}

	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot store locking state",
			"error", err,
			"source", "secretstore.SetLockingEnabled",
		)
		return fmt.Errorf("cannot store locking state: %w", err)
	}

	return nil
}

// CanBeLocked is true when locking is enabled and a password exists.
func (s *Store) CanBeLocked() bool {
	return s.IsLockingEnabled() && s.HasPassword()
}

// logFailure logs vault errors. A missing item is an expected outcome
// and only logged at debug level.
func (s *Store) logFailure(err error, message string, keyvals ...interface{}) {
	logger := level.Error(s.logger)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		logger = level.Debug(s.logger)
	}

	keyvals = append([]interface{}{"message", message, "error", err, "source", "secretstore"}, keyvals...)
	logger.Log(keyvals...)
}
