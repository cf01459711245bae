package sql

import "errors"

// 删除保护与写入约束的哨兵错误，由仓库层返回、处理器层映射为 HTTP 状态。
var (
	// ErrReferenced 表示记录仍被其他记录引用，不允许删除。
	ErrReferenced = errors.New("record is referenced and cannot be deleted")
	// ErrSystemRole 表示系统角色不允许修改或删除。
	ErrSystemRole = errors.New("system role cannot be modified or deleted")
	// ErrProtectedUser 表示内置管理员账号不允许删除。
	ErrProtectedUser = errors.New("built-in admin account cannot be deleted")
	// ErrInvalidReference 表示批量赋权时引用了不存在的记录。
	ErrInvalidReference = errors.New("referenced record does not exist")
	// ErrCodeConsumed 表示验证码已被消费或不可用。
	ErrCodeConsumed = errors.New("verification code already consumed")
)
