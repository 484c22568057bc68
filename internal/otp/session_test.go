package otp

import (
	"testing"
	"time"
)

func TestSession_UpdateFollowsWindow(t *testing.T) {
	start := time.Unix(1600000020, 0)
	s, err := NewSession(exampleSecret, start)
	if err != nil {
		t.Fatal("failed to create session:", err)
	}

	if len(s.Code()) != DefaultDigits {
		t.Errorf("incorrect code length, want %v got %v", DefaultDigits, len(s.Code()))
	}
	for _, c := range s.Code() {
		if c < '0' || c > '9' {
			t.Fatalf("code is not numeric: %s", s.Code())
		}
	}

	initial := s.Code()
	if got := s.Update(start.Add(29 * time.Second)); got != initial {
		t.Errorf("code changed inside window, want %s got %s", initial, got)
	}

	next := s.Update(start.Add(30 * time.Second))
	want, err := GenerateTOTP(exampleSecret, start.Unix()+30)
	if err != nil {
		t.Fatal("failed to generate code:", err)
	}
	if next != want {
		t.Errorf("incorrect code after window, want %s got %s", want, next)
	}
	if s.Counter() != Counter(start.Unix()+30, DefaultPeriod) {
		t.Errorf("incorrect counter, got %v", s.Counter())
	}
	if got := s.Remaining(start.Add(31 * time.Second)); got != 29 {
		t.Errorf("incorrect time remaining, want 29 got %v", got)
	}
}

func TestSession_RejectsInvalidSecret(t *testing.T) {
	s, err := NewSession(invalidSecret, time.Now())
	if err == nil {
		t.Error("expected error, not nil")
	}
	if s != nil {
		t.Error("expected nil session")
	}
}

func TestSession_CustomOptions(t *testing.T) {
	now := time.Unix(59, 0)
	s, err := NewSession(rfcSecretB32, now, WithDigits(8), WithPeriod(30))
	if err != nil {
		t.Fatal("failed to create session:", err)
	}
	if s.Code() != "94287082" {
		t.Errorf("incorrect code, want 94287082 got %s", s.Code())
	}
	if s.Options().Digits != 8 {
		t.Errorf("incorrect digits, want 8 got %v", s.Options().Digits)
	}
}
