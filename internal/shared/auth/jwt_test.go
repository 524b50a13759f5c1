package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour, "dev")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := m.Issue("user-1", "alice", "alice@example.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" || claims.Role != "USER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyExpired(t *testing.T) {
	m, _ := NewManager("s3cret", time.Minute, "dev")
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.Issue("user-1", "alice", "", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	m.now = time.Now
	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer, _ := NewManager("one", time.Hour, "dev")
	verifier, _ := NewManager("two", time.Hour, "dev")
	token, _ := issuer.Issue("user-1", "alice", "", "USER")
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := verifier.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestNewManagerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewManager("", time.Hour, "production"); err == nil {
		t.Fatal("expected error without secret in production")
	}
	if _, err := NewManager("", time.Hour, "dev"); err != nil {
		t.Fatalf("dev should fall back to a default secret: %v", err)
	}
}
