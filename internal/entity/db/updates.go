package db

// UserUpdates 用户更新字段
type UserUpdates struct {
	Nickname     *string
	Email        *string
	Phone        *string
	Status       *string
	PasswordHash *string
	AvatarPath   *string
	LastLoginAt  interface{}
	LastLoginIP  *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Nickname != nil {
		updates["nickname"] = *u.Nickname
	}
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.Phone != nil {
		updates["phone"] = *u.Phone
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.AvatarPath != nil {
		updates["avatar_path"] = *u.AvatarPath
	}
	if u.LastLoginAt != nil {
		updates["last_login_at"] = u.LastLoginAt
	}
	if u.LastLoginIP != nil {
		updates["last_login_ip"] = *u.LastLoginIP
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// RoleUpdates 角色更新字段
type RoleUpdates struct {
	Name        *string
	Description *string
	ParentID    interface{}
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u RoleUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.ParentID != nil {
		updates["parent_id"] = u.ParentID
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u RoleUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// PermissionUpdates 权限更新字段
type PermissionUpdates struct {
	Name        *string
	Description *string
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u PermissionUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u PermissionUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// MenuUpdates 菜单更新字段
type MenuUpdates struct {
	Name      *string
	Path      *string
	Icon      *string
	SortOrder *int
	Hidden    *bool
	ParentID  interface{}
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u MenuUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Path != nil {
		updates["path"] = *u.Path
	}
	if u.Icon != nil {
		updates["icon"] = *u.Icon
	}
	if u.SortOrder != nil {
		updates["sort_order"] = *u.SortOrder
	}
	if u.Hidden != nil {
		updates["hidden"] = *u.Hidden
	}
	if u.ParentID != nil {
		updates["parent_id"] = u.ParentID
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u MenuUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
