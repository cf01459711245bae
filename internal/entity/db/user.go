package db

import "time"

const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
	UserStatusLocked   = "LOCKED"
)

// ReservedAdminUsername 是受保护的内置管理员账号，不允许删除。
const ReservedAdminUsername = "admin"

// User 表示持久化的用户账户。
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `gorm:"column:username;type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Nickname     string     `gorm:"column:nickname;type:varchar(255)" json:"nickname"`
	Email        *string    `gorm:"column:email;type:varchar(255);uniqueIndex" json:"email,omitempty"`
	Phone        *string    `gorm:"column:phone;type:varchar(50);uniqueIndex" json:"phone,omitempty"`
	Status       string     `gorm:"column:status;type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	AvatarPath   string     `gorm:"column:avatar_path;type:varchar(500)" json:"avatar_path,omitempty"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	LastLoginIP  string     `gorm:"column:last_login_ip;type:varchar(64)" json:"last_login_ip,omitempty"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// IsActive 判断账户是否可以登录和访问资源。
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}
