package converter

import (
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// PermissionToSummary converts a db.Permission to dto.PermissionSummary.
func PermissionToSummary(p *db.Permission) dto.PermissionSummary {
	if p == nil {
		return dto.PermissionSummary{}
	}
	return dto.PermissionSummary{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

// PermissionsToSummaries converts a slice of db.Permission.
func PermissionsToSummaries(perms []db.Permission) []dto.PermissionSummary {
	summaries := make([]dto.PermissionSummary, len(perms))
	for i := range perms {
		summaries[i] = PermissionToSummary(&perms[i])
	}
	return summaries
}

// PermissionCodes extracts the code list handed to the client after login.
func PermissionCodes(perms []db.Permission) []string {
	codes := make([]string, len(perms))
	for i := range perms {
		codes[i] = perms[i].Code
	}
	return codes
}
