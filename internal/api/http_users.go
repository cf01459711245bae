package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/entity/converter"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/model"
)

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query dto.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	if query.PageSize > 100 {
		query.PageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	users, meta, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list users")
		InternalError(c, "加载用户列表失败")
		return
	}

	summaries := converter.UsersToSummaries(users)
	for i := range summaries {
		summaries[i].AvatarURL = h.publicURL(summaries[i].AvatarURL)
	}
	c.JSON(http.StatusOK, dto.UserListResponse{Users: summaries, Meta: meta})
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user")
		InternalError(c, "加载用户失败")
		return
	}
	roles, err := h.repo.FindRolesByUserID(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to load user roles")
		InternalError(c, "加载用户角色失败")
		return
	}

	summary := converter.UserToSummary(user)
	summary.AvatarURL = h.publicURL(user.AvatarPath)
	c.JSON(http.StatusOK, dto.UserDetailResponse{
		User:  summary,
		Roles: converter.RolesToSummaries(roles),
	})
}

func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req dto.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = db.UserStatusActive
	}
	if !validUserStatus(status) {
		BadRequest(c, ErrCodeInvalidRequest, "invalid user status")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password for new user")
		InternalError(c, "创建用户失败")
		return
	}

	user := db.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Nickname:     strings.TrimSpace(req.Nickname),
		Status:       status,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = &phone
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, ErrCodeUsernameExists, "用户名、邮箱或手机号已被占用")
			return
		}
		logrus.WithError(err).Error("failed to create user")
		InternalError(c, "创建用户失败")
		return
	}

	if len(req.RoleIDs) > 0 {
		if err := h.repo.ReplaceUserRoles(ctx, user.ID, req.RoleIDs); err != nil {
			if errors.Is(err, model.ErrInvalidReference) {
				BadRequest(c, ErrCodeInvalidRequest, "存在无效的角色 ID")
				return
			}
			logrus.WithError(err).Error("failed to assign roles to new user")
			InternalError(c, "分配角色失败")
			return
		}
	}

	c.JSON(http.StatusCreated, converter.UserToSummary(&user))
}

func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	target, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user")
		InternalError(c, "加载用户失败")
		return
	}

	// 内置管理员账号不允许停用或调整角色。
	if target.Username == db.ReservedAdminUsername {
		if req.Status != nil && *req.Status != db.UserStatusActive {
			Forbidden(c, "内置管理员账号不允许停用")
			return
		}
		if req.RoleIDs != nil {
			Forbidden(c, "内置管理员账号不允许调整角色")
			return
		}
	}

	updates := db.UserUpdates{
		Nickname: req.Nickname,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if req.Status != nil {
		if !validUserStatus(*req.Status) {
			BadRequest(c, ErrCodeInvalidRequest, "invalid user status")
			return
		}
		updates.Status = req.Status
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			BadRequest(c, ErrCodeInvalidRequest, "password too short")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			logrus.WithError(err).Error("failed to hash password")
			InternalError(c, "更新用户失败")
			return
		}
		updates.PasswordHash = &hash
	}

	if !updates.IsEmpty() {
		if err := h.repo.UpdateUser(ctx, id, updates); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				Conflict(c, ErrCodeConflict, "邮箱或手机号已被占用")
				return
			}
			logrus.WithError(err).Error("failed to update user")
			InternalError(c, "更新用户失败")
			return
		}
	}

	if req.RoleIDs != nil {
		if err := h.repo.ReplaceUserRoles(ctx, id, req.RoleIDs); err != nil {
			if errors.Is(err, model.ErrInvalidReference) {
				BadRequest(c, ErrCodeInvalidRequest, "存在无效的角色 ID")
				return
			}
			logrus.WithError(err).Error("failed to replace user roles")
			InternalError(c, "调整角色失败")
			return
		}
	}

	// 停用或修改密码后撤销会话，避免旧刷新令牌继续使用。
	statusChanged := updates.Status != nil && *updates.Status != db.UserStatusActive
	if statusChanged || updates.PasswordHash != nil {
		if err := h.sessions.Revoke(ctx, id); err != nil {
			logrus.WithError(err).WithField("user_id", id).Warn("failed to revoke sessions after user update")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	requestUser := CurrentUser(c)
	if requestUser != nil && requestUser.ID == id {
		BadRequest(c, ErrCodeCannotDeleteSelf, "不能删除当前登录的账号")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteUser(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
		case errors.Is(err, model.ErrProtectedUser):
			Forbidden(c, "内置管理员账号不允许删除")
		case errors.Is(err, model.ErrReferenced):
			Conflict(c, ErrCodeInUse, "用户仍持有角色，请先解除角色")
		default:
			logrus.WithError(err).Error("failed to delete user")
			InternalError(c, "删除用户失败")
		}
		return
	}

	if err := h.sessions.Revoke(ctx, id); err != nil {
		logrus.WithError(err).WithField("user_id", id).Warn("failed to revoke sessions after user delete")
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func validUserStatus(status string) bool {
	switch status {
	case db.UserStatusActive, db.UserStatusInactive, db.UserStatusLocked:
		return true
	default:
		return false
	}
}

// parseIDParam 解析路径中的 :id 参数，失败时写入 400 响应。
func parseIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}
