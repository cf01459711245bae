package dto

import (
	"time"

	"backoffice/internal/entity/common"
)

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Nickname    string     `json:"nickname"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      string     `json:"status"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserQuery supports listing users with pagination.
type UserQuery struct {
	common.BaseParams
	Status  string `json:"status" form:"status" query:"status"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

// UserCreateRequest creates a user from the admin surface.
type UserCreateRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
	RoleIDs  []uint `json:"role_ids"`
}

// UserUpdateRequest patches user fields; nil means leave unchanged.
type UserUpdateRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Status   *string `json:"status,omitempty"`
	Password *string `json:"password,omitempty"`
	RoleIDs  []uint  `json:"role_ids,omitempty"`
}

// UserListResponse wraps a user page.
type UserListResponse struct {
	Users []UserSummary `json:"users"`
	Meta  *common.Meta  `json:"meta"`
}

// UserDetailResponse includes the user's assigned roles.
type UserDetailResponse struct {
	User  UserSummary   `json:"user"`
	Roles []RoleSummary `json:"roles"`
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}
