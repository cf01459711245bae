package sql

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// openTestRepository 建立内存 SQLite 仓库用于关联写入测试。
func openTestRepository(t *testing.T) *GormRepository {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	// 内存库按连接隔离，限制为单连接避免迁移结果丢失。
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = gormDB.AutoMigrate(
		&db.User{},
		&db.Role{},
		&db.Permission{},
		&db.Menu{},
		&db.UserRole{},
		&db.RoleMenu{},
		&db.RolePermission{},
		&db.MenuPermission{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return NewGormRepository(gormDB)
}

func seedRelationFixtures(t *testing.T, repo *GormRepository) (userID, roleID, permID, menuID uint) {
	t.Helper()
	ctx := context.Background()

	user := &db.User{Username: "alice", PasswordHash: "x", Status: db.UserStatusActive}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	role := &db.Role{Name: "editor"}
	if err := repo.CreateRole(ctx, role); err != nil {
		t.Fatalf("failed to create role: %v", err)
	}
	perm := &db.Permission{Code: "content:posts:edit", Name: "编辑文章"}
	if err := repo.CreatePermission(ctx, perm); err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}
	menu := &db.Menu{Name: "Posts", Path: "/content/posts"}
	if err := repo.CreateMenu(ctx, menu); err != nil {
		t.Fatalf("failed to create menu: %v", err)
	}
	return user.ID, role.ID, perm.ID, menu.ID
}

func countRows(t *testing.T, repo *GormRepository, entityModel interface{}) int64 {
	t.Helper()
	var count int64
	if err := repo.db.Model(entityModel).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func TestAddUserRoleIdempotent(t *testing.T) {
	repo := openTestRepository(t)
	userID, roleID, _, _ := seedRelationFixtures(t, repo)
	ctx := context.Background()

	if err := repo.AddUserRole(ctx, userID, roleID); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	// 重复授予同一组合不能报唯一约束冲突。
	if err := repo.AddUserRole(ctx, userID, roleID); err != nil {
		t.Fatalf("second add surfaced an error: %v", err)
	}
	if got := countRows(t, repo, &db.UserRole{}); got != 1 {
		t.Fatalf("expected 1 user-role row, got %d", got)
	}
}

func TestAddRolePermissionIdempotent(t *testing.T) {
	repo := openTestRepository(t)
	_, roleID, permID, _ := seedRelationFixtures(t, repo)
	ctx := context.Background()

	if err := repo.AddRolePermission(ctx, roleID, permID); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	if err := repo.AddRolePermission(ctx, roleID, permID); err != nil {
		t.Fatalf("second grant surfaced an error: %v", err)
	}
	if got := countRows(t, repo, &db.RolePermission{}); got != 1 {
		t.Fatalf("expected 1 role-permission row, got %d", got)
	}
}

func TestSetRolePermissionsDuplicateInput(t *testing.T) {
	repo := openTestRepository(t)
	_, roleID, permID, _ := seedRelationFixtures(t, repo)
	ctx := context.Background()

	other := &db.Permission{Code: "content:posts:view", Name: "查看文章"}
	if err := repo.CreatePermission(ctx, other); err != nil {
		t.Fatalf("failed to create permission: %v", err)
	}

	// 批量输入携带重复 ID 时按集合处理。
	if err := repo.SetRolePermissions(ctx, roleID, []uint{permID, permID, other.ID}); err != nil {
		t.Fatalf("set with duplicates failed: %v", err)
	}
	if got := countRows(t, repo, &db.RolePermission{}); got != 2 {
		t.Fatalf("expected 2 role-permission rows, got %d", got)
	}

	if err := repo.SetRolePermissions(ctx, roleID, []uint{permID, permID, other.ID}); err != nil {
		t.Fatalf("repeated set failed: %v", err)
	}
	if got := countRows(t, repo, &db.RolePermission{}); got != 2 {
		t.Fatalf("expected 2 role-permission rows after repeat, got %d", got)
	}
}

func TestSetRolePermissionsUnknownIDRejected(t *testing.T) {
	repo := openTestRepository(t)
	_, roleID, permID, _ := seedRelationFixtures(t, repo)
	ctx := context.Background()

	err := repo.SetRolePermissions(ctx, roleID, []uint{permID, 9999})
	if err != ErrInvalidReference {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	// 校验失败时不应写入任何行。
	if got := countRows(t, repo, &db.RolePermission{}); got != 0 {
		t.Fatalf("expected 0 role-permission rows, got %d", got)
	}
}

func TestSetMenuPermissionsRebindUpdatesActionType(t *testing.T) {
	repo := openTestRepository(t)
	_, _, permID, menuID := seedRelationFixtures(t, repo)
	ctx := context.Background()

	assign := []dto.MenuPermissionAssignment{{PermissionID: permID, ActionType: db.ActionView}}
	if err := repo.SetMenuPermissions(ctx, menuID, assign); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}

	assign[0].ActionType = db.ActionEdit
	if err := repo.SetMenuPermissions(ctx, menuID, assign); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}

	bindings, err := repo.FindMenuPermissionBindings(ctx, menuID)
	if err != nil {
		t.Fatalf("failed to load bindings: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
	if bindings[0].ActionType != db.ActionEdit {
		t.Fatalf("expected action type %q, got %q", db.ActionEdit, bindings[0].ActionType)
	}
}
