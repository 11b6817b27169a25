package auth

import (
	"errors"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("hash equals plaintext")
	}
	if !verifyPassword(hash, "hunter2hunter2") {
		t.Error("correct password rejected")
	}
	if verifyPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	b, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical, salting broken")
	}
}

func TestPasswordTooShort(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Register(t.Context(), "alice", "", "short")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("got %v, want ErrPasswordTooShort", err)
	}
}

func TestUsernameRequired(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Register(t.Context(), "   ", "", "long-enough")
	if !errors.Is(err, ErrUsernameRequired) {
		t.Errorf("got %v, want ErrUsernameRequired", err)
	}
}
