package converter

import (
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// RoleToSummary converts a db.Role to dto.RoleSummary.
func RoleToSummary(r *db.Role) dto.RoleSummary {
	if r == nil {
		return dto.RoleSummary{}
	}
	return dto.RoleSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		ParentID:    r.ParentID,
		CreatedAt:   r.CreatedAt,
	}
}

// RolesToSummaries converts a slice of db.Role to dto.RoleSummary.
func RolesToSummaries(roles []db.Role) []dto.RoleSummary {
	summaries := make([]dto.RoleSummary, len(roles))
	for i := range roles {
		summaries[i] = RoleToSummary(&roles[i])
	}
	return summaries
}

// RoleNames extracts the name list used in access-token claims.
func RoleNames(roles []db.Role) []string {
	names := make([]string, len(roles))
	for i := range roles {
		names[i] = roles[i].Name
	}
	return names
}

// RoleIDs extracts the role id list.
func RoleIDs(roles []db.Role) []uint {
	ids := make([]uint, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
	}
	return ids
}
