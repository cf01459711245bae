package rbac

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// defaultStaticPaths maps well-known navigational paths to the permission that
// gates them. Paths missing here are resolved dynamically from menu records.
var defaultStaticPaths = map[string]string{
	"/dashboard": "dashboard:index:view",
	"/system":    "system:index:view",
}

// MenuSource 提供按路径解析菜单及其权限绑定所需的查询集合。
type MenuSource interface {
	GetMenuByPath(ctx context.Context, path string) (*db.Menu, error)
	FindMenuPermissionBindings(ctx context.Context, menuID uint) ([]dto.MenuPermissionBinding, error)
	FindPermissionsByMenuID(ctx context.Context, menuID uint) ([]db.Permission, error)
}

// Mapper 将导航路径映射为守卫它的权限码。
type Mapper struct {
	static map[string]string
	menus  MenuSource
}

// NewMapper creates a path-to-permission mapper with the default static table.
func NewMapper(menus MenuSource) *Mapper {
	return &Mapper{static: defaultStaticPaths, menus: menus}
}

// NewMapperWithTable creates a mapper with a custom static path table.
func NewMapperWithTable(menus MenuSource, static map[string]string) *Mapper {
	if static == nil {
		static = map[string]string{}
	}
	return &Mapper{static: static, menus: menus}
}

// PermissionForPath returns the permission code gating the given path, or an
// empty string meaning "no permission required". Unlike Evaluate, a path that
// derives an empty or malformed code is allowed: an unmapped page is an
// unguarded page on this call path.
func (m *Mapper) PermissionForPath(ctx context.Context, path string) (string, error) {
	if m == nil {
		return "", errors.New("mapper not initialised")
	}
	normalized := normalizePath(path)
	if normalized == "" {
		return "", nil
	}

	// 1. Static table, exact match.
	if code, ok := m.static[normalized]; ok {
		return code, nil
	}

	// 2. Dynamic menu lookup.
	code, err := m.permissionFromMenu(ctx, normalized)
	if err != nil {
		return "", err
	}
	if code != "" {
		return code, nil
	}

	// 3. Ancestor-path fallback against the static table, most specific first.
	prefix := normalized
	for {
		idx := strings.LastIndex(prefix, "/")
		if idx <= 0 {
			break
		}
		prefix = prefix[:idx]
		if code, ok := m.static[prefix]; ok {
			return code, nil
		}
	}

	// 4. Nothing matched: no permission required.
	return "", nil
}

func (m *Mapper) permissionFromMenu(ctx context.Context, path string) (string, error) {
	if m.menus == nil {
		return "", nil
	}
	menu, err := m.menus.GetMenuByPath(ctx, path)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	bindings, err := m.menus.FindMenuPermissionBindings(ctx, menu.ID)
	if err != nil {
		return "", err
	}
	if code := pickBinding(bindings); code != "" {
		return code, nil
	}

	perms, err := m.menus.FindPermissionsByMenuID(ctx, menu.ID)
	if err != nil {
		return "", err
	}
	return pickDirectPermission(perms), nil
}

// pickBinding prefers the view binding, then manage, then the first one.
func pickBinding(bindings []dto.MenuPermissionBinding) string {
	if len(bindings) == 0 {
		return ""
	}
	for _, b := range bindings {
		if b.ActionType == db.ActionView {
			return b.Code
		}
	}
	for _, b := range bindings {
		if b.ActionType == db.ActionManage {
			return b.Code
		}
	}
	return bindings[0].Code
}

// pickDirectPermission prefers a :view code, then a :manage suffix, then the
// first associated code.
func pickDirectPermission(perms []db.Permission) string {
	if len(perms) == 0 {
		return ""
	}
	for _, p := range perms {
		if strings.Contains(p.Code, ":view") {
			return p.Code
		}
	}
	for _, p := range perms {
		if strings.HasSuffix(p.Code, ":"+actionManage) {
			return p.Code
		}
	}
	return perms[0].Code
}

func normalizePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	if len(trimmed) > 1 {
		trimmed = strings.TrimRight(trimmed, "/")
	}
	return trimmed
}
