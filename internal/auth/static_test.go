package auth

import (
	"context"
	"errors"
	"testing"
)

func TestStaticVerifierRegisterAndVerify(t *testing.T) {
	v := NewStaticVerifier()
	ctx := context.Background()

	if err := v.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	acc, err := v.Verify(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if acc.Username != "alice" {
		t.Fatalf("username = %q", acc.Username)
	}

	if _, err := v.Verify(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := v.Verify(ctx, "nobody", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestStaticVerifierDuplicateRegister(t *testing.T) {
	v := NewStaticVerifier()
	ctx := context.Background()

	if err := v.Register(ctx, "alice", "one"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := v.Register(ctx, "alice", "two"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate err = %v, want ErrUsernameTaken", err)
	}
	// original password still verifies
	if _, err := v.Verify(ctx, "alice", "one"); err != nil {
		t.Fatalf("Verify after duplicate attempt: %v", err)
	}
}

func TestStaticVerifierRejectsEmptyFields(t *testing.T) {
	v := NewStaticVerifier()
	ctx := context.Background()
	if err := v.Register(ctx, "", "pw"); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if err := v.Register(ctx, "alice", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestStaticVerifierTrimsUsername(t *testing.T) {
	v := NewStaticVerifier()
	ctx := context.Background()
	if err := v.Register(ctx, "  alice  ", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := v.Verify(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Verify trimmed name: %v", err)
	}
}
