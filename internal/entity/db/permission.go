package db

import "time"

// Permission 表示一条权限，Code 为三段式 module:resource:action。
type Permission struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Code        string    `gorm:"column:code;type:varchar(200);uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Description string    `gorm:"column:description;type:varchar(500)" json:"description"`
}

// TableName 指定表名。
func (Permission) TableName() string {
	return "permissions"
}
