package dto

// CheckPermissionRequest asks whether the caller holds a specific code.
type CheckPermissionRequest struct {
	Code string `json:"code" binding:"required"`
}

// CheckPathRequest asks whether the caller may access a navigational path.
type CheckPathRequest struct {
	Path string `json:"path" binding:"required"`
}

// AccessDecision is the authorization decision payload.
type AccessDecision struct {
	Allowed               bool   `json:"allowed"`
	MatchedPermissionCode string `json:"matched_permission_code,omitempty"`
	Reason                string `json:"reason"`
}
