package auth

import (
	"testing"
	"time"

	"backoffice/internal/entity/db"
)

func TestNewManagerAndTokenLifecycle(t *testing.T) {
	mgr, err := NewManager("test-secret", "issuer", time.Minute*30)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	user := &db.User{ID: 42, Username: "alice", Status: db.UserStatusActive}
	roles := []string{"admin", "user"}
	token, expiresAt, err := mgr.GenerateToken(user, roles)
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected future expiry time")
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %d, got %d", user.ID, claims.UserID)
	}
	if claims.Username != user.Username {
		t.Fatalf("expected username %s, got %s", user.Username, claims.Username)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" || claims.Roles[1] != "user" {
		t.Fatalf("expected roles %v, got %v", roles, claims.Roles)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("   ", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	mgr, err := NewManager("secret-one", "issuer", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	other, err := NewManager("secret-two", "issuer", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	token, _, err := mgr.GenerateToken(&db.User{ID: 1, Username: "bob"}, nil)
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
