package converter

import (
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
)

// UserToSummary converts a db.User to dto.UserSummary.
// AvatarURL 先携带存储相对路径，由处理器层拼接公开前缀。
func UserToSummary(u *db.User) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	summary := dto.UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		Nickname:    u.Nickname,
		Status:      u.Status,
		AvatarURL:   u.AvatarPath,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.Email != nil {
		summary.Email = *u.Email
	}
	if u.Phone != nil {
		summary.Phone = *u.Phone
	}
	return summary
}

// UsersToSummaries converts a slice of db.User to dto.UserSummary.
func UsersToSummaries(users []db.User) []dto.UserSummary {
	summaries := make([]dto.UserSummary, len(users))
	for i := range users {
		summaries[i] = UserToSummary(&users[i])
	}
	return summaries
}
