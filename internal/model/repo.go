package model

import (
	"context"

	"backoffice/internal/entity/common"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/model/sql"
)

// 仓库层的哨兵错误，由具体实现定义，处理器层映射为 HTTP 状态。
var (
	ErrReferenced       = sql.ErrReferenced
	ErrSystemRole       = sql.ErrSystemRole
	ErrProtectedUser    = sql.ErrProtectedUser
	ErrInvalidReference = sql.ErrInvalidReference
	ErrCodeConsumed     = sql.ErrCodeConsumed
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *db.User) error
	UpdateUser(ctx context.Context, id uint, updates db.UserUpdates) error
	GetUserByID(ctx context.Context, id uint) (*db.User, error)
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*db.User, error)
	ListUsers(ctx context.Context, params *dto.UserQuery) ([]db.User, *common.Meta, error)
	DeleteUser(ctx context.Context, id uint) error
	CountUsers(ctx context.Context) (int64, error)

	// 角色管理
	CreateRole(ctx context.Context, role *db.Role) error
	UpdateRole(ctx context.Context, id uint, updates db.RoleUpdates) error
	DeleteRole(ctx context.Context, id uint) error
	GetRoleByID(ctx context.Context, id uint) (*db.Role, error)
	GetRoleByName(ctx context.Context, name string) (*db.Role, error)
	ListRoles(ctx context.Context) ([]db.Role, error)
	FindRolesByIDs(ctx context.Context, ids []uint) ([]db.Role, error)
	FindRolesByUserID(ctx context.Context, userID uint) ([]db.Role, error)
	AddUserRole(ctx context.Context, userID, roleID uint) error
	ReplaceUserRoles(ctx context.Context, userID uint, roleIDs []uint) error
	AddRolePermission(ctx context.Context, roleID, permissionID uint) error
	SetRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error
	SetRoleMenus(ctx context.Context, roleID uint, menuIDs []uint) error

	// 权限管理
	CreatePermission(ctx context.Context, permission *db.Permission) error
	UpdatePermission(ctx context.Context, id uint, updates db.PermissionUpdates) error
	DeletePermission(ctx context.Context, id uint) error
	GetPermissionByID(ctx context.Context, id uint) (*db.Permission, error)
	GetPermissionByCode(ctx context.Context, code string) (*db.Permission, error)
	ListPermissions(ctx context.Context) ([]db.Permission, error)
	FindPermissionsByRoleIDs(ctx context.Context, roleIDs []uint) ([]db.Permission, error)
	FindPermissionsByMenuID(ctx context.Context, menuID uint) ([]db.Permission, error)

	// 菜单管理
	CreateMenu(ctx context.Context, menu *db.Menu) error
	UpdateMenu(ctx context.Context, id uint, updates db.MenuUpdates) error
	DeleteMenu(ctx context.Context, id uint) error
	GetMenuByID(ctx context.Context, id uint) (*db.Menu, error)
	GetMenuByPath(ctx context.Context, path string) (*db.Menu, error)
	ListMenus(ctx context.Context) ([]db.Menu, error)
	FindMenusByRoleIDs(ctx context.Context, roleIDs []uint) ([]db.Menu, error)
	FindMenuPermissionBindings(ctx context.Context, menuID uint) ([]dto.MenuPermissionBinding, error)
	SetMenuPermissions(ctx context.Context, menuID uint, assignments []dto.MenuPermissionAssignment) error

	// 验证码
	CreateVerificationCode(ctx context.Context, code *db.VerificationCode) error
	GetLatestCode(ctx context.Context, codeType, target string) (*db.VerificationCode, error)
	GetLatestUsableCode(ctx context.Context, codeType, target, code string) (*db.VerificationCode, error)
	MarkCodeUsed(ctx context.Context, id uint) error
}
