package dto

import "time"

// RoleSummary describes a role including its inheritance parent.
type RoleSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	ParentID    *uint     `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleCreateRequest creates a role.
type RoleCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

// RoleUpdateRequest patches role fields.
type RoleUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *uint   `json:"parent_id,omitempty"`
}

// RoleAssignRequest replaces a role's permission or menu set.
type RoleAssignRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// RoleListResponse wraps the role collection.
type RoleListResponse struct {
	Roles []RoleSummary `json:"roles"`
}

// RoleDetailResponse includes the role's direct and effective permissions.
type RoleDetailResponse struct {
	Role                 RoleSummary         `json:"role"`
	Parent               *RoleSummary        `json:"parent,omitempty"`
	Permissions          []PermissionSummary `json:"permissions"`
	EffectivePermissions []string            `json:"effective_permissions"`
}
