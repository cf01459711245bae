package db

import "time"

const (
	// RoleNameAdmin 是种子数据中的最高管理角色。
	RoleNameAdmin = "admin"
	// RoleNameDefault 是注册用户获得的普通角色。
	RoleNameDefault = "user"
)

// Role 表示一组权限的命名集合，可通过 ParentID 继承父角色的权限。
type Role struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"column:name;type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"column:description;type:varchar(500)" json:"description"`
	IsSystem    bool      `gorm:"column:is_system;not null;default:false" json:"is_system"`
	ParentID    *uint     `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
}

// TableName 指定表名。
func (Role) TableName() string {
	return "roles"
}
