package auth

import (
	"context"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	m, err := NewJWTManager("0123456789abcdef0123", "dock-planner", time.Minute)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	token, err := m.IssueToken("jefe-turno", "planner")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "jefe-turno" || claims.Role != "planner" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateRejects(t *testing.T) {
	m, _ := NewJWTManager("0123456789abcdef0123", "dock-planner", time.Minute)
	other, _ := NewJWTManager("another-secret-entirely", "dock-planner", time.Minute)
	foreign, _ := other.IssueToken("x", "")

	expired, _ := NewJWTManager("0123456789abcdef0123", "dock-planner", time.Minute)
	expired.nowFunc = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _ := expired.IssueToken("x", "")

	wrongIssuer, _ := NewJWTManager("0123456789abcdef0123", "elsewhere", time.Minute)
	misissued, _ := wrongIssuer.IssueToken("x", "")

	for name, token := range map[string]string{"empty": "", "garbage": "a.b.c", "signature": foreign, "expired": stale, "issuer": misissued} {
		if _, err := m.ValidateToken(context.Background(), token); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "", 0); err == nil {
		t.Fatal("expected error for short secret")
	}
}
