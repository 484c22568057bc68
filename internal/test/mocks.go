package test

import (
	"context"

	"github.com/pkg/errors"

	keeper "github.com/fmitra/otpkeeper"
)

// TokenService mocks keeper.TokenService interface.
type TokenService struct {
	CreateFn   func() (*keeper.Token, error)
	SignFn     func() (string, error)
	ValidateFn func() (*keeper.Token, error)
	Calls      struct {
		Create   int
		Sign     int
		Validate int
	}
}

// SecretStore mocks keeper.SecretStore interface.
type SecretStore struct {
	LookupFn            func() (string, bool)
	InsertFn            func() error
	RemoveFn            func() bool
	ClearAllFn          func() bool
	PasswordFn          func() (string, bool)
	SetPasswordFn       func() error
	HasPasswordFn       func() bool
	RemovePasswordFn    func() bool
	VerifyPasswordFn    func() bool
	IsLockingEnabledFn  func() bool
	SetLockingEnabledFn func() error
	CanBeLockedFn       func() bool
	Calls               struct {
		Lookup            int
		Insert            int
		Remove            int
		ClearAll          int
		Password          int
		SetPassword       int
		HasPassword       int
		RemovePassword    int
		VerifyPassword    int
		IsLockingEnabled  int
		SetLockingEnabled int
		CanBeLocked       int
	}
}

// PasswordService mocks keeper.PasswordService interface.
type PasswordService struct {
	HashFn      func() ([]byte, error)
	ValidateFn  func() error
	OKForUserFn func() error
	Calls       struct {
		Hash      int
		Validate  int
		OKForUser int
	}
}

// Create mock.
func (m *TokenService) Create(ctx context.Context) (*keeper.Token, error) {
	m.Calls.Create++
	if m.CreateFn != nil {
		return m.CreateFn()
	}
	return nil, errors.New("failed to create token")
}

// Sign mock.
func (m *TokenService) Sign(ctx context.Context, token *keeper.Token) (string, error) {
	m.Calls.Sign++
	if m.SignFn != nil {
		return m.SignFn()
	}
	return "", errors.New("failed to sign token")
}

// Validate mock.
func (m *TokenService) Validate(ctx context.Context, signedToken string) (*keeper.Token, error) {
	m.Calls.Validate++
	if m.ValidateFn != nil {
		return m.ValidateFn()
	}
	return nil, errors.New("token is not valid")
}

// Lookup mock.
func (m *SecretStore) Lookup(tokenID string) (string, bool) {
	m.Calls.Lookup++
	if m.LookupFn != nil {
		return m.LookupFn()
	}
	return "", false
}

// Insert mock.
func (m *SecretStore) Insert(tokenID, providerName, username, secret string) error {
	m.Calls.Insert++
	if m.InsertFn != nil {
		return m.InsertFn()
	}
	return errors.New("failed to insert secret")
}

// Remove mock.
func (m *SecretStore) Remove(tokenID string) bool {
	m.Calls.Remove++
	if m.RemoveFn != nil {
		return m.RemoveFn()
	}
	return false
}

// ClearAll mock.
func (m *SecretStore) ClearAll() bool {
	m.Calls.ClearAll++
	if m.ClearAllFn != nil {
		return m.ClearAllFn()
	}
	return false
}

// Password mock.
func (m *SecretStore) Password() (string, bool) {
	m.Calls.Password++
	if m.PasswordFn != nil {
		return m.PasswordFn()
	}
	return "", false
}

// SetPassword mock.
func (m *SecretStore) SetPassword(password string) error {
	m.Calls.SetPassword++
	if m.SetPasswordFn != nil {
		return m.SetPasswordFn()
	}
	return errors.New("failed to set password")
}

// HasPassword mock.
func (m *SecretStore) HasPassword() bool {
	m.Calls.HasPassword++
	if m.HasPasswordFn != nil {
		return m.HasPasswordFn()
	}
	return false
}

// RemovePassword mock.
func (m *SecretStore) RemovePassword() bool {
	m.Calls.RemovePassword++
	if m.RemovePasswordFn != nil {
		return m.RemovePasswordFn()
	}
	return false
}

// VerifyPassword mock.
func (m *SecretStore) VerifyPassword(password string) bool {
	m.Calls.VerifyPassword++
	if m.VerifyPasswordFn != nil {
		return m.VerifyPasswordFn()
	}
	return false
}

// IsLockingEnabled mock.
func (m *SecretStore) IsLockingEnabled() bool {
	m.Calls.IsLockingEnabled++
	if m.IsLockingEnabledFn != nil {
		return m.IsLockingEnabledFn()
	}
	return false
}

// SetLockingEnabled mock.
func (m *SecretStore) SetLockingEnabled(enabled bool) error {
	m.Calls.SetLockingEnabled++
	if m.SetLockingEnabledFn != nil {
		return m.SetLockingEnabledFn()
	}
	return errors.New("failed to set locking state")
}

// CanBeLocked mock.
func (m *SecretStore) CanBeLocked() bool {
	m.Calls.CanBeLocked++
	if m.CanBeLockedFn != nil {
		return m.CanBeLockedFn()
	}
	return false
}

// Hash mock.
func (m *PasswordService) Hash(password string) ([]byte, error) {
	m.Calls.Hash++
	if m.HashFn != nil {
		return m.HashFn()
	}
	return nil, errors.New("failed to hash password")
}

// Validate mock.
func (m *PasswordService) Validate(hash, password string) error {
	m.Calls.Validate++
	if m.ValidateFn != nil {
		return m.ValidateFn()
	}
	return errors.New("password is invalid")
}

// OKForUser mock.
func (m *PasswordService) OKForUser(password string) error {
	m.Calls.OKForUser++
	if m.OKForUserFn != nil {
		return m.OKForUserFn()
	}
	return nil
}
