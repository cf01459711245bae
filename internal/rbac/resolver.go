package rbac

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"backoffice/internal/entity/db"
)

const (
	wildcard     = "*"
	actionManage = "manage"
)

// crudActions are the actions implied by a resource-level manage permission.
var crudActions = map[string]struct{}{
	db.ActionView:   {},
	db.ActionAdd:    {},
	db.ActionEdit:   {},
	db.ActionDelete: {},
}

// Decision 是一次权限判定的结果。
type Decision struct {
	Allowed     bool
	MatchedCode string
	Reason      string
}

// splitCode 将三段式权限码拆分为 module/resource/action。
func splitCode(code string) (module, resource, action string, ok bool) {
	parts := strings.Split(strings.TrimSpace(code), ":")
	if len(parts) != 3 {
		return "", "", "", false
	}
	for _, part := range parts {
		if part == "" {
			return "", "", "", false
		}
	}
	return parts[0], parts[1], parts[2], true
}

// WellFormed reports whether code has exactly three non-empty segments.
func WellFormed(code string) bool {
	_, _, _, ok := splitCode(code)
	return ok
}

// IsAdminCode 判断一条已持有的权限码是否授予无条件通过:
// 精确的 *:*:* 或任何以 :admin 结尾的权限码。
func IsAdminCode(code string) bool {
	trimmed := strings.TrimSpace(code)
	if trimmed == "*:*:*" {
		return true
	}
	return strings.HasSuffix(trimmed, ":admin")
}

// MatchCode 判断持有的权限码是否满足请求的权限码。
// 匹配按优先级进行: 精确匹配、全局 manage、模块级 manage、
// 资源级 manage/通配、manage 隐含 CRUD。
func MatchCode(held, requested string) bool {
	held = strings.TrimSpace(held)
	requested = strings.TrimSpace(requested)
	if held == requested && held != "" {
		return true
	}

	hm, hr, ha, ok := splitCode(held)
	if !ok {
		return false
	}
	rm, rr, ra, ok := splitCode(requested)
	if !ok {
		return false
	}

	// *:*:manage grants everything.
	if hm == wildcard && hr == wildcard && ha == actionManage {
		return true
	}
	// <module>:*:manage grants the whole module.
	if hm == rm && hr == wildcard && ha == actionManage {
		return true
	}
	// <module>:<resource>:manage / <module>:<resource>:* grant any action on
	// the resource.
	if hm == rm && hr == rr && (ha == actionManage || ha == wildcard) {
		return true
	}
	// manage additionally implies the plain CRUD actions.
	if hm == rm && hr == rr && ha == actionManage {
		if _, crud := crudActions[ra]; crud {
			return true
		}
	}
	return false
}

// Evaluate decides whether any held code satisfies the requested code and
// reports which one matched. A malformed requested code is always denied on
// this path; the navigational-path mapper applies the opposite policy.
func Evaluate(held []string, requested string) Decision {
	requested = strings.TrimSpace(requested)
	if !WellFormed(requested) {
		return Decision{Allowed: false, Reason: "malformed permission code"}
	}

	for _, code := range held {
		if IsAdminCode(code) {
			return Decision{Allowed: true, MatchedCode: code, Reason: "administrator permission"}
		}
	}
	for _, code := range held {
		if MatchCode(code, requested) {
			return Decision{Allowed: true, MatchedCode: code, Reason: "permission granted"}
		}
	}
	return Decision{Allowed: false, Reason: "no matching permission"}
}

// RoleSource 提供解析角色继承所需的最小查询集合。
type RoleSource interface {
	GetRoleByID(ctx context.Context, id uint) (*db.Role, error)
	FindPermissionsByRoleIDs(ctx context.Context, roleIDs []uint) ([]db.Permission, error)
}

// Resolver 计算角色集合的有效权限，沿父角色链继承。
type Resolver struct {
	roles RoleSource
}

// NewResolver creates a permission resolver backed by the given role source.
func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{roles: roles}
}

// EffectivePermissions 返回给定角色及其所有祖先角色的去重权限集合。
// 每次调用维护独立的已访问集合，角色图中的环不会导致无限遍历。
func (r *Resolver) EffectivePermissions(ctx context.Context, roleIDs []uint) ([]db.Permission, error) {
	if r == nil || r.roles == nil {
		return nil, errors.New("resolver not initialised")
	}

	visited := make(map[uint]struct{})
	var walkOrder []uint
	for _, id := range roleIDs {
		current := &id
		for current != nil {
			roleID := *current
			if _, seen := visited[roleID]; seen {
				break
			}
			visited[roleID] = struct{}{}

			role, err := r.roles.GetRoleByID(ctx, roleID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break
				}
				return nil, err
			}
			walkOrder = append(walkOrder, roleID)
			current = role.ParentID
		}
	}

	if len(walkOrder) == 0 {
		return []db.Permission{}, nil
	}

	perms, err := r.roles.FindPermissionsByRoleIDs(ctx, walkOrder)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(perms))
	deduped := make([]db.Permission, 0, len(perms))
	for _, perm := range perms {
		if _, dup := seen[perm.ID]; dup {
			continue
		}
		seen[perm.ID] = struct{}{}
		deduped = append(deduped, perm)
	}
	return deduped, nil
}

// EffectiveCodes 返回有效权限的 code 列表。
func (r *Resolver) EffectiveCodes(ctx context.Context, roleIDs []uint) ([]string, error) {
	perms, err := r.EffectivePermissions(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(perms))
	for i := range perms {
		codes[i] = perms[i].Code
	}
	return codes, nil
}
