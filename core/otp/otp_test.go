package otp

import (
	"bytes"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	code, tok, err := New("user-1", ScopeRecovery, 10*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(code) != codeLength {
		t.Fatalf("expected a %d-digit code, got %q", codeLength, code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("code %q contains a non-digit", code)
		}
	}

	if !bytes.Equal(tok.Hash, Hash(code)) {
		t.Fatal("stored hash does not match the code")
	}
	if tok.Scope != ScopeRecovery || tok.UserID != "user-1" {
		t.Fatalf("unexpected token fields: %+v", tok)
	}

	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != 10*time.Minute {
		t.Fatalf("expected 10m ttl, got %v", got)
	}
}

func TestHashIsStable(t *testing.T) {
	if !bytes.Equal(Hash("123456"), Hash("123456")) {
		t.Fatal("hash must be deterministic")
	}
	if bytes.Equal(Hash("123456"), Hash("654321")) {
		t.Fatal("distinct codes must not collide trivially")
	}
}
