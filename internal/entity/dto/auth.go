package dto

import "time"

// LoginRequest is the login request payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the registration request payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
}

// RefreshRequest carries a refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ResetCodeRequest asks for a password-reset verification code.
type ResetCodeRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email phone"`
	Target  string `json:"target" binding:"required"`
}

// ResetPasswordRequest consumes a verification code and sets a new password.
type ResetPasswordRequest struct {
	Channel     string `json:"channel" binding:"required,oneof=email phone"`
	Target      string `json:"target" binding:"required"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// TokenPayload carries the token half of an auth response.
type TokenPayload struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
}

// AuthResponse is returned after successful login, registration, or refresh.
type AuthResponse struct {
	User        UserSummary   `json:"user"`
	Roles       []RoleSummary `json:"roles"`
	Menus       []MenuNode    `json:"menus"`
	Permissions []string      `json:"permissions"`
	TokenPayload
}
