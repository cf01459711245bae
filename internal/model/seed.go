package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/config"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

type permissionSeed struct {
	Code string
	Name string
}

type menuSeed struct {
	Name       string
	Path       string
	Icon       string
	SortOrder  int
	ParentPath string
	Bindings   []menuBindingSeed
}

type menuBindingSeed struct {
	ActionType string
	Code       string
}

type roleSeed struct {
	Name            string
	Description     string
	PermissionCodes []string
	MenuPaths       []string
}

// SeedDefaults 保证内置权限、角色、菜单和管理员账号存在，可重复执行。
func SeedDefaults(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}

	permissionIDs, err := seedPermissions(ctx, repo)
	if err != nil {
		return err
	}
	menuIDs, err := seedMenus(ctx, repo, permissionIDs)
	if err != nil {
		return err
	}
	adminRoleID, err := seedRoles(ctx, repo, permissionIDs, menuIDs)
	if err != nil {
		return err
	}
	return seedAdminUser(ctx, repo, cfg, adminRoleID)
}

func seedPermissions(ctx context.Context, repo Repository) (map[string]uint, error) {
	ids := make(map[string]uint, len(defaultPermissionSeeds))
	for _, seed := range defaultPermissionSeeds {
		existing, err := repo.GetPermissionByCode(ctx, seed.Code)
		switch {
		case err == nil:
			ids[seed.Code] = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			permission := db.Permission{Code: seed.Code, Name: seed.Name}
			if err := repo.CreatePermission(ctx, &permission); err != nil {
				return nil, err
			}
			ids[seed.Code] = permission.ID
		default:
			return nil, err
		}
	}
	return ids, nil
}

func seedMenus(ctx context.Context, repo Repository, permissionIDs map[string]uint) (map[string]uint, error) {
	ids := make(map[string]uint, len(defaultMenuSeeds))
	for _, seed := range defaultMenuSeeds {
		existing, err := repo.GetMenuByPath(ctx, seed.Path)
		switch {
		case err == nil:
			ids[seed.Path] = existing.ID
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, err
		}

		menu := db.Menu{
			Name:      seed.Name,
			Path:      seed.Path,
			Icon:      seed.Icon,
			SortOrder: seed.SortOrder,
		}
		if seed.ParentPath != "" {
			parentID, ok := ids[seed.ParentPath]
			if !ok {
				return nil, fmt.Errorf("menu seed %s references unknown parent %s", seed.Path, seed.ParentPath)
			}
			menu.ParentID = &parentID
		}
		if err := repo.CreateMenu(ctx, &menu); err != nil {
			return nil, err
		}
		ids[seed.Path] = menu.ID

		// 仅在菜单首次创建时写入默认绑定，避免覆盖管理员后续调整。
		if len(seed.Bindings) > 0 {
			assignments := make([]dto.MenuPermissionAssignment, 0, len(seed.Bindings))
			for _, binding := range seed.Bindings {
				permissionID, ok := permissionIDs[binding.Code]
				if !ok {
					return nil, fmt.Errorf("menu seed %s references unknown permission %s", seed.Path, binding.Code)
				}
				assignments = append(assignments, dto.MenuPermissionAssignment{
					PermissionID: permissionID,
					ActionType:   binding.ActionType,
				})
			}
			if err := repo.SetMenuPermissions(ctx, menu.ID, assignments); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

func seedRoles(ctx context.Context, repo Repository, permissionIDs, menuIDs map[string]uint) (uint, error) {
	var adminRoleID uint
	for _, seed := range defaultRoleSeeds {
		existing, err := repo.GetRoleByName(ctx, seed.Name)
		created := false
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			role := db.Role{Name: seed.Name, Description: seed.Description, IsSystem: true}
			if err := repo.CreateRole(ctx, &role); err != nil {
				return 0, err
			}
			existing = &role
			created = true
		default:
			return 0, err
		}

		// 系统角色的内置权限始终补齐，防止手工误删后失去管理入口。
		for _, code := range seed.PermissionCodes {
			permissionID, ok := permissionIDs[code]
			if !ok {
				return 0, fmt.Errorf("role seed %s references unknown permission %s", seed.Name, code)
			}
			if err := repo.AddRolePermission(ctx, existing.ID, permissionID); err != nil {
				return 0, err
			}
		}

		if created && len(seed.MenuPaths) > 0 {
			ids := make([]uint, 0, len(seed.MenuPaths))
			for _, path := range seed.MenuPaths {
				menuID, ok := menuIDs[path]
				if !ok {
					return 0, fmt.Errorf("role seed %s references unknown menu %s", seed.Name, path)
				}
				ids = append(ids, menuID)
			}
			if err := repo.SetRoleMenus(ctx, existing.ID, ids); err != nil {
				return 0, err
			}
		}

		if seed.Name == db.RoleNameAdmin {
			adminRoleID = existing.ID
		}
	}
	return adminRoleID, nil
}

func seedAdminUser(ctx context.Context, repo Repository, cfg config.Config, adminRoleID uint) error {
	existing, err := repo.GetUserByUsername(ctx, db.ReservedAdminUsername)
	switch {
	case err == nil:
		if adminRoleID != 0 {
			return repo.AddUserRole(ctx, existing.ID, adminRoleID)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return err
	}

	password := strings.TrimSpace(cfg.AdminInitialPassword)
	if password == "" {
		return fmt.Errorf("admin initial password is empty")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := db.User{
		Username:     db.ReservedAdminUsername,
		PasswordHash: hash,
		Nickname:     "Administrator",
		Status:       db.UserStatusActive,
	}
	if err := repo.CreateUser(ctx, &admin); err != nil {
		return err
	}
	if adminRoleID != 0 {
		return repo.AddUserRole(ctx, admin.ID, adminRoleID)
	}
	return nil
}

var defaultPermissionSeeds = []permissionSeed{
	{Code: "*:*:manage", Name: "超级管理"},
	{Code: "dashboard:index:view", Name: "查看仪表盘"},
	{Code: "system:index:view", Name: "查看系统管理"},
	{Code: "system:users:view", Name: "查看用户"},
	{Code: "system:users:add", Name: "新增用户"},
	{Code: "system:users:edit", Name: "编辑用户"},
	{Code: "system:users:delete", Name: "删除用户"},
	{Code: "system:roles:view", Name: "查看角色"},
	{Code: "system:roles:add", Name: "新增角色"},
	{Code: "system:roles:edit", Name: "编辑角色"},
	{Code: "system:roles:delete", Name: "删除角色"},
	{Code: "system:menus:view", Name: "查看菜单"},
	{Code: "system:menus:add", Name: "新增菜单"},
	{Code: "system:menus:edit", Name: "编辑菜单"},
	{Code: "system:menus:delete", Name: "删除菜单"},
	{Code: "system:permissions:view", Name: "查看权限"},
	{Code: "system:permissions:add", Name: "新增权限"},
	{Code: "system:permissions:edit", Name: "编辑权限"},
	{Code: "system:permissions:delete", Name: "删除权限"},
	{Code: "system:sessions:manage", Name: "管理在线会话"},
}

var defaultMenuSeeds = []menuSeed{
	{
		Name: "仪表盘", Path: "/dashboard", Icon: "dashboard", SortOrder: 1,
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "dashboard:index:view"},
		},
	},
	{
		Name: "系统管理", Path: "/system", Icon: "setting", SortOrder: 9,
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "system:index:view"},
		},
	},
	{
		Name: "用户管理", Path: "/system/users", SortOrder: 1, ParentPath: "/system",
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "system:users:view"},
			{ActionType: db.ActionAdd, Code: "system:users:add"},
			{ActionType: db.ActionEdit, Code: "system:users:edit"},
			{ActionType: db.ActionDelete, Code: "system:users:delete"},
		},
	},
	{
		Name: "角色管理", Path: "/system/roles", SortOrder: 2, ParentPath: "/system",
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "system:roles:view"},
			{ActionType: db.ActionAdd, Code: "system:roles:add"},
			{ActionType: db.ActionEdit, Code: "system:roles:edit"},
			{ActionType: db.ActionDelete, Code: "system:roles:delete"},
		},
	},
	{
		Name: "菜单管理", Path: "/system/menus", SortOrder: 3, ParentPath: "/system",
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "system:menus:view"},
			{ActionType: db.ActionAdd, Code: "system:menus:add"},
			{ActionType: db.ActionEdit, Code: "system:menus:edit"},
			{ActionType: db.ActionDelete, Code: "system:menus:delete"},
		},
	},
	{
		Name: "权限管理", Path: "/system/permissions", SortOrder: 4, ParentPath: "/system",
		Bindings: []menuBindingSeed{
			{ActionType: db.ActionView, Code: "system:permissions:view"},
			{ActionType: db.ActionAdd, Code: "system:permissions:add"},
			{ActionType: db.ActionEdit, Code: "system:permissions:edit"},
			{ActionType: db.ActionDelete, Code: "system:permissions:delete"},
		},
	},
}

var defaultRoleSeeds = []roleSeed{
	{
		Name:            db.RoleNameAdmin,
		Description:     "内置超级管理员角色",
		PermissionCodes: []string{"*:*:manage", "system:sessions:manage"},
		MenuPaths: []string{
			"/dashboard", "/system", "/system/users", "/system/roles",
			"/system/menus", "/system/permissions",
		},
	},
	{
		Name:            db.RoleNameDefault,
		Description:     "注册用户默认角色",
		PermissionCodes: []string{"dashboard:index:view"},
		MenuPaths:       []string{"/dashboard"},
	},
}
