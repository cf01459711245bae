package db

import "time"

// MenuPermission 绑定的操作类型。
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// UserRole 关联用户与角色，(UserID, RoleID) 唯一。
type UserRole struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex:idx_user_role;not null" json:"user_id"`
	RoleID    uint      `gorm:"column:role_id;uniqueIndex:idx_user_role;not null" json:"role_id"`
}

// TableName 指定表名。
func (UserRole) TableName() string {
	return "user_roles"
}

// RoleMenu 关联角色与菜单，(RoleID, MenuID) 唯一。
type RoleMenu struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	RoleID    uint      `gorm:"column:role_id;uniqueIndex:idx_role_menu;not null" json:"role_id"`
	MenuID    uint      `gorm:"column:menu_id;uniqueIndex:idx_role_menu;not null" json:"menu_id"`
}

// TableName 指定表名。
func (RoleMenu) TableName() string {
	return "role_menus"
}

// RolePermission 关联角色与权限，(RoleID, PermissionID) 唯一。
type RolePermission struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	RoleID       uint      `gorm:"column:role_id;uniqueIndex:idx_role_permission;not null" json:"role_id"`
	PermissionID uint      `gorm:"column:permission_id;uniqueIndex:idx_role_permission;not null" json:"permission_id"`
}

// TableName 指定表名。
func (RolePermission) TableName() string {
	return "role_permissions"
}

// MenuPermission 关联菜单与权限，并携带操作类型。
type MenuPermission struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	MenuID       uint      `gorm:"column:menu_id;uniqueIndex:idx_menu_permission;not null" json:"menu_id"`
	PermissionID uint      `gorm:"column:permission_id;uniqueIndex:idx_menu_permission;not null" json:"permission_id"`
	ActionType   string    `gorm:"column:action_type;type:varchar(20)" json:"action_type,omitempty"`
}

// TableName 指定表名。
func (MenuPermission) TableName() string {
	return "menu_permissions"
}
