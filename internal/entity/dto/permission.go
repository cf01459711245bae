package dto

import "time"

// PermissionSummary describes a permission entry.
type PermissionSummary struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermissionCreateRequest creates a permission.
type PermissionCreateRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// PermissionUpdateRequest patches permission fields; the code itself is immutable.
type PermissionUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PermissionListResponse wraps the permission collection.
type PermissionListResponse struct {
	Permissions []PermissionSummary `json:"permissions"`
}
