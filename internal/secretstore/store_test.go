package secretstore

import (
	"testing"

	"github.com/99designs/keyring"
	"golang.org/x/crypto/bcrypt"

	"github.com/fmitra/otpkeeper/internal/password"
)

func newTestStore() (*Store, Rings) {
	rings := Rings{
		Secrets:  keyring.NewArrayKeyring(nil),
		Password: keyring.NewArrayKeyring(nil),
		State:    keyring.NewArrayKeyring(nil),
	}
	s := NewStore(
		WithRings(rings),
		WithPassword(password.NewPassword(password.WithCost(bcrypt.MinCost))),
	)
	return s, rings
}

func TestStore_SecretLifecycle(t *testing.T) {
	s, rings := newTestStore()

	if _, ok := s.Lookup("missing"); ok {
		t.Error("expected lookup of missing token to fail")
	}

	if err := s.Insert("token-1", "GitHub", "alice", "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatal("failed to insert secret:", err)
	}

	secret, ok := s.Lookup("token-1")
	if !ok {
		t.Fatal("expected secret to be found")
	}
	if secret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("incorrect secret, want %s got %s", "JBSWY3DPEHPK3PXP", secret)
	}

	item, err := rings.Secrets.Get("token-1")
	if err != nil {
		t.Fatal("failed to read vault item:", err)
	}
	if item.Label != "GitHub OTP (alice)" {
		t.Errorf("incorrect label, want %s got %s", "GitHub OTP (alice)", item.Label)
	}

	if !s.Remove("token-1") {
		t.Error("expected secret to be removed")
	}
	if _, ok := s.Lookup("token-1"); ok {
		t.Error("expected secret to be absent after removal")
	}
}

func TestStore_ClearAll(t *testing.T) {
	s, rings := newTestStore()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Insert(id, "Default", "user", "JBSWY3DPEHPK3PXP"); err != nil {
			t.Fatal("failed to insert secret:", err)
		}
	}

	if !s.ClearAll() {
		t.Error("expected vault to be cleared")
	}

	keys, err := rings.Secrets.Keys()
	if err != nil {
		t.Fatal("failed to list keys:", err)
	}
	if len(keys) != 0 {
		t.Errorf("incorrect key count, want 0 got %v", len(keys))
	}
}

func TestStore_Password(t *testing.T) {
	s, _ := newTestStore()

	if s.HasPassword() {
		t.Error("expected no password")
	}
	if s.CanBeLocked() {
		t.Error("expected store without password to be unlockable")
	}

	if err := s.SetPassword("swordfish"); err != nil {
		t.Fatal("failed to set password:", err)
	}

	hash, ok := s.Password()
	if !ok {
		t.Fatal("expected password to be stored")
	}
	if hash == "swordfish" {
		t.Error("expected password to be stored hashed")
	}
	if !s.IsLockingEnabled() {
		t.Error("expected locking to be enabled")
	}
	if !s.CanBeLocked() {
		t.Error("expected store to be lockable")
	}
	if !s.VerifyPassword("swordfish") {
		t.Error("expected password to verify")
	}
	if s.VerifyPassword("swordfish-2") {
		t.Error("expected wrong password to fail verification")
	}

	if !s.RemovePassword() {
		t.Error("expected password to be removed")
	}
	if s.HasPassword() {
		t.Error("expected password to be absent")
	}
	if s.IsLockingEnabled() {
		t.Error("expected locking to be disabled")
	}
}

func TestStore_LockingState(t *testing.T) {
	s, rings := newTestStore()

	if err := s.SetLockingEnabled(true); err != nil {
		t.Fatal("failed to enable locking:", err)
	}

	item, err := rings.State.Get(stateKey)
	if err != nil {
		t.Fatal("failed to read state:", err)
	}
	if string(item.Data) != "true" {
		t.Errorf("incorrect state, want true got %s", item.Data)
	}
	if s.CanBeLocked() {
		t.Error("expected locking without password to be unusable")
	}

	if err := s.SetLockingEnabled(false); err != nil {
		t.Fatal("failed to disable locking:", err)
	}
	if err := s.SetLockingEnabled(false); err != nil {
		t.Error("expected disabling twice to succeed:", err)
	}
	if s.IsLockingEnabled() {
		t.Error("expected locking to be disabled")
	}
}
