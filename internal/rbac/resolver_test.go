package rbac

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"backoffice/internal/entity/db"
)

func TestMatchCode(t *testing.T) {
	tests := []struct {
		name      string
		held      string
		requested string
		want      bool
	}{
		{"exact match", "system:users:edit", "system:users:edit", true},
		{"global manage grants anything", "*:*:manage", "content:posts:delete", true},
		{"module manage grants module", "content:*:manage", "content:posts:delete", true},
		{"module manage rejects other module", "content:*:manage", "system:users:view", false},
		{"resource manage grants any action", "content:posts:manage", "content:posts:publish", true},
		{"resource wildcard grants any action", "content:posts:*", "content:posts:delete", true},
		{"resource manage implies crud", "content:posts:manage", "content:posts:delete", true},
		{"plain action does not imply others", "content:posts:view", "content:posts:delete", false},
		{"mismatched module never matches", "billing:*:manage", "content:posts:view", false},
		{"malformed held denied", "content:posts", "content:posts:view", false},
		{"malformed requested denied", "content:posts:manage", "content", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchCode(tt.held, tt.requested); got != tt.want {
				t.Fatalf("MatchCode(%q, %q) = %v, want %v", tt.held, tt.requested, got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	decision := Evaluate([]string{"content:*:manage"}, "content:posts:delete")
	if !decision.Allowed {
		t.Fatal("expected grant via module manage")
	}
	if decision.MatchedCode != "content:*:manage" {
		t.Fatalf("expected matched code content:*:manage, got %q", decision.MatchedCode)
	}

	decision = Evaluate([]string{"content:posts:view"}, "content:posts:delete")
	if decision.Allowed {
		t.Fatal("expected deny for viewer role")
	}

	decision = Evaluate([]string{"system:anything:admin", "content:posts:view"}, "billing:invoices:delete")
	if !decision.Allowed || decision.MatchedCode != "system:anything:admin" {
		t.Fatalf("expected admin shortcut grant, got %+v", decision)
	}

	decision = Evaluate([]string{"*:*:*"}, "billing:invoices:delete")
	if !decision.Allowed {
		t.Fatal("expected *:*:* to grant everything")
	}

	decision = Evaluate([]string{"*:*:manage"}, "not-a-code")
	if decision.Allowed {
		t.Fatal("expected malformed requested code to be denied")
	}
	decision = Evaluate([]string{"*:*:manage"}, "")
	if decision.Allowed {
		t.Fatal("expected empty requested code to be denied")
	}
}

type fakeRoleSource struct {
	roles map[uint]*db.Role
	perms map[uint][]db.Permission
}

func (f *fakeRoleSource) GetRoleByID(_ context.Context, id uint) (*db.Role, error) {
	role, ok := f.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return role, nil
}

func (f *fakeRoleSource) FindPermissionsByRoleIDs(_ context.Context, roleIDs []uint) ([]db.Permission, error) {
	var out []db.Permission
	for _, id := range roleIDs {
		out = append(out, f.perms[id]...)
	}
	return out, nil
}

func uintPtr(v uint) *uint { return &v }

func TestEffectivePermissionsInheritance(t *testing.T) {
	source := &fakeRoleSource{
		roles: map[uint]*db.Role{
			1: {ID: 1, Name: "editor", ParentID: uintPtr(2)},
			2: {ID: 2, Name: "viewer"},
		},
		perms: map[uint][]db.Permission{
			1: {{ID: 10, Code: "content:posts:edit"}},
			2: {{ID: 11, Code: "content:posts:view"}},
		},
	}

	resolver := NewResolver(source)
	codes, err := resolver.EffectiveCodes(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 || codes[0] != "content:posts:edit" || codes[1] != "content:posts:view" {
		t.Fatalf("expected inherited codes, got %v", codes)
	}
}

func TestEffectivePermissionsCycleTerminates(t *testing.T) {
	source := &fakeRoleSource{
		roles: map[uint]*db.Role{
			1: {ID: 1, Name: "a", ParentID: uintPtr(2)},
			2: {ID: 2, Name: "b", ParentID: uintPtr(1)},
		},
		perms: map[uint][]db.Permission{
			1: {{ID: 10, Code: "a:a:view"}},
			2: {{ID: 11, Code: "b:b:view"}},
		},
	}

	resolver := NewResolver(source)
	perms, err := resolver.EffectivePermissions(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("unexpected error resolving cyclic roles: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions from cyclic graph, got %d", len(perms))
	}
}

func TestEffectivePermissionsDeduplicates(t *testing.T) {
	shared := db.Permission{ID: 10, Code: "content:posts:view"}
	source := &fakeRoleSource{
		roles: map[uint]*db.Role{
			1: {ID: 1, Name: "a"},
			2: {ID: 2, Name: "b"},
		},
		perms: map[uint][]db.Permission{
			1: {shared},
			2: {shared, {ID: 11, Code: "content:posts:edit"}},
		},
	}

	resolver := NewResolver(source)
	perms, err := resolver.EffectivePermissions(context.Background(), []uint{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected deduplicated set of 2, got %d", len(perms))
	}
}

func TestEffectivePermissionsMissingRoleSkipped(t *testing.T) {
	source := &fakeRoleSource{
		roles: map[uint]*db.Role{1: {ID: 1, Name: "a"}},
		perms: map[uint][]db.Permission{1: {{ID: 10, Code: "a:a:view"}}},
	}

	resolver := NewResolver(source)
	perms, err := resolver.EffectivePermissions(context.Background(), []uint{1, 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("expected missing role to contribute nothing, got %d perms", len(perms))
	}
}
