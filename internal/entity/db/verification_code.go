package db

import "time"

const (
	CodeTypeResetPasswordEmail = "reset_password_email"
	CodeTypeResetPasswordPhone = "reset_password_phone"
)

// VerificationCode 表示一次性密码重置验证码。
type VerificationCode struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `gorm:"column:type;type:varchar(50);index:idx_code_target;not null" json:"type"`
	Target    string    `gorm:"column:target;type:varchar(255);index:idx_code_target;not null" json:"target"`
	Code      string    `gorm:"column:code;type:varchar(10);not null" json:"-"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	Used      bool      `gorm:"column:used;not null;default:false" json:"used"`
}

// TableName 指定表名。
func (VerificationCode) TableName() string {
	return "verification_codes"
}

// Usable 判断验证码在给定时间是否仍可消费。
func (v *VerificationCode) Usable(now time.Time) bool {
	return v != nil && !v.Used && now.Before(v.ExpiresAt)
}
