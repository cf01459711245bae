package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"backoffice/internal/auth"
	"backoffice/internal/entity/db"
)

// setupManagerTest starts a miniredis instance and returns a manager bound to
// it plus a cleanup function.
func setupManagerTest(t *testing.T) (*Manager, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens, err := auth.NewManager("test-secret", "test", time.Hour)
	if err != nil {
		mr.Close()
		t.Fatalf("failed to create token manager: %v", err)
	}

	mgr := NewManager(rdb, tokens, time.Hour*24)

	cleanup := func() {
		rdb.Close()
		mr.Close()
	}
	return mgr, mr, cleanup
}

func testUser() *db.User {
	return &db.User{ID: 7, Username: "alice", Status: db.UserStatusActive}
}

func TestIssueStoresSessionPair(t *testing.T) {
	mgr, mr, cleanup := setupManagerTest(t)
	defer cleanup()

	pair, err := mgr.Issue(context.Background(), testUser(), []string{"user"})
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be populated")
	}

	stored, err := mr.Get("refresh:7")
	if err != nil {
		t.Fatalf("expected refresh key in store: %v", err)
	}
	if stored != pair.RefreshToken {
		t.Fatalf("stored refresh token mismatch: %q != %q", stored, pair.RefreshToken)
	}
	uid, err := mr.Get("token:" + pair.RefreshToken)
	if err != nil {
		t.Fatalf("expected reverse key in store: %v", err)
	}
	if uid != "7" {
		t.Fatalf("expected reverse mapping to user 7, got %q", uid)
	}
}

func TestIssueSupersedesPriorSession(t *testing.T) {
	mgr, _, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	first, err := mgr.Issue(ctx, testUser(), nil)
	if err != nil {
		t.Fatalf("unexpected error issuing first session: %v", err)
	}
	second, err := mgr.Issue(ctx, testUser(), nil)
	if err != nil {
		t.Fatalf("unexpected error issuing second session: %v", err)
	}

	if _, err := mgr.Peek(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected first refresh token to be superseded, got %v", err)
	}
	if _, err := mgr.Peek(ctx, second.RefreshToken); err != nil {
		t.Fatalf("expected second refresh token to be valid, got %v", err)
	}
}

func TestRotateIsSingleUse(t *testing.T) {
	mgr, _, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	user := testUser()

	issued, err := mgr.Issue(ctx, user, nil)
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}
	t1 := issued.RefreshToken

	rotated, err := mgr.Rotate(ctx, t1, user, nil)
	if err != nil {
		t.Fatalf("unexpected error rotating: %v", err)
	}
	t2 := rotated.RefreshToken
	if t2 == "" || t2 == t1 {
		t.Fatalf("expected a fresh refresh token, got %q", t2)
	}

	// The original token is spent.
	if _, err := mgr.Rotate(ctx, t1, user, nil); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected re-use of old token to fail, got %v", err)
	}

	// The new token rotates exactly once.
	if _, err := mgr.Rotate(ctx, t2, user, nil); err != nil {
		t.Fatalf("expected new token to rotate, got %v", err)
	}
	if _, err := mgr.Rotate(ctx, t2, user, nil); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected second use of t2 to fail, got %v", err)
	}
}

func TestRotateRejectsForeignToken(t *testing.T) {
	mgr, _, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := mgr.Rotate(ctx, "never-issued", testUser(), nil); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected unknown token to be rejected, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	mgr, _, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	user := testUser()

	pair, err := mgr.Issue(ctx, user, nil)
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}

	if err := mgr.Revoke(ctx, user.ID); err != nil {
		t.Fatalf("unexpected error revoking: %v", err)
	}
	if _, err := mgr.Peek(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}

	// Revoking again is a no-op, not an error.
	if err := mgr.Revoke(ctx, user.ID); err != nil {
		t.Fatalf("expected idempotent revoke, got %v", err)
	}
}

func TestPeekExpiredToken(t *testing.T) {
	mgr, mr, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	pair, err := mgr.Issue(ctx, testUser(), nil)
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}

	mr.FastForward(25 * time.Hour)

	if _, err := mgr.Peek(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected expired token to be invalid, got %v", err)
	}
}

func TestSessionsIntrospection(t *testing.T) {
	mgr, _, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	alice := &db.User{ID: 1, Username: "alice", Status: db.UserStatusActive}
	bob := &db.User{ID: 2, Username: "bob", Status: db.UserStatusActive}

	if _, err := mgr.Issue(ctx, alice, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mgr.Issue(ctx, bob, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessions, err := mgr.Sessions(ctx)
	if err != nil {
		t.Fatalf("unexpected error listing sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	info, err := mgr.SessionFor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil || info.UserID != alice.ID {
		t.Fatalf("expected session for alice, got %+v", info)
	}

	none, err := mgr.SessionFor(ctx, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no session for unknown user, got %+v", none)
	}
}

func TestIssueDegradesWhenStoreUnavailable(t *testing.T) {
	mgr, mr, cleanup := setupManagerTest(t)
	defer cleanup()

	mr.Close()

	pair, err := mgr.Issue(context.Background(), testUser(), nil)
	if err != nil {
		t.Fatalf("expected login to survive store outage, got %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected access token despite store outage")
	}
	if pair.RefreshToken != "" {
		t.Fatal("expected refresh capability to be degraded")
	}
}

func TestRotateFailsWhenStoreUnavailable(t *testing.T) {
	mgr, mr, cleanup := setupManagerTest(t)
	defer cleanup()

	ctx := context.Background()
	pair, err := mgr.Issue(ctx, testUser(), nil)
	if err != nil {
		t.Fatalf("unexpected error issuing session: %v", err)
	}

	mr.Close()

	_, err = mgr.Rotate(ctx, pair.RefreshToken, testUser(), nil)
	if err == nil {
		t.Fatal("expected rotation to fail during store outage")
	}
	if errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatal("store outage must not be reported as an invalid token")
	}
}
