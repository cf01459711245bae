package dto

// SessionInfo describes one active refresh session.
type SessionInfo struct {
	UserID           uint   `json:"user_id"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

// SessionListResponse wraps the session introspection result.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}
