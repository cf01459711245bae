package dto

// MenuNode is a menu entry with its resolved children.
type MenuNode struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Path      string     `json:"path,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	SortOrder int        `json:"sort_order"`
	Hidden    bool       `json:"hidden"`
	ParentID  *uint      `json:"parent_id,omitempty"`
	Children  []MenuNode `json:"children,omitempty"`
}

// MenuCreateRequest creates a menu node.
type MenuCreateRequest struct {
	Name      string `json:"name" binding:"required"`
	Path      string `json:"path"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	Hidden    bool   `json:"hidden"`
	ParentID  *uint  `json:"parent_id"`
}

// MenuUpdateRequest patches menu fields.
type MenuUpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	Path      *string `json:"path,omitempty"`
	Icon      *string `json:"icon,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	Hidden    *bool   `json:"hidden,omitempty"`
	ParentID  *uint   `json:"parent_id,omitempty"`
}

// MenuPermissionAssignment binds one permission to a menu with an action type.
type MenuPermissionAssignment struct {
	PermissionID uint   `json:"permission_id" binding:"required"`
	ActionType   string `json:"action_type" binding:"omitempty,oneof=view add edit delete manage"`
}

// MenuAssignRequest replaces a menu's permission bindings.
type MenuAssignRequest struct {
	Permissions []MenuPermissionAssignment `json:"permissions" binding:"required"`
}

// MenuPermissionBinding is a resolved menu-permission row used when deriving
// the permission that gates a navigational path.
type MenuPermissionBinding struct {
	ActionType string `json:"action_type"`
	Code       string `json:"code"`
}

// MenuTreeResponse wraps the full menu tree.
type MenuTreeResponse struct {
	Menus []MenuNode `json:"menus"`
}
