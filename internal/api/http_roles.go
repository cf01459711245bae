package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backoffice/internal/entity/converter"
	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/model"
)

func (h *HTTPHandler) ListRoles(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	roles, err := h.repo.ListRoles(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list roles")
		InternalError(c, "加载角色列表失败")
		return
	}
	c.JSON(http.StatusOK, dto.RoleListResponse{Roles: converter.RolesToSummaries(roles)})
}

func (h *HTTPHandler) GetRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	role, err := h.repo.GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeNotFound, "角色不存在")
			return
		}
		logrus.WithError(err).Error("failed to load role")
		InternalError(c, "加载角色失败")
		return
	}

	direct, err := h.repo.FindPermissionsByRoleIDs(ctx, []uint{role.ID})
	if err != nil {
		logrus.WithError(err).Error("failed to load role permissions")
		InternalError(c, "加载角色权限失败")
		return
	}
	effective, err := h.resolver.EffectiveCodes(ctx, []uint{role.ID})
	if err != nil {
		logrus.WithError(err).Error("failed to resolve effective permissions")
		InternalError(c, "权限解析失败")
		return
	}

	resp := dto.RoleDetailResponse{
		Role:                 converter.RoleToSummary(role),
		Permissions:          converter.PermissionsToSummaries(direct),
		EffectivePermissions: effective,
	}
	if role.ParentID != nil {
		if parent, err := h.repo.GetRoleByID(ctx, *role.ParentID); err == nil {
			summary := converter.RoleToSummary(parent)
			resp.Parent = &summary
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) CreateRole(c *gin.Context) {
	var req dto.RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		MissingField(c, "name")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if req.ParentID != nil {
		if _, err := h.repo.GetRoleByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "父角色不存在")
				return
			}
			logrus.WithError(err).Error("failed to load parent role")
			InternalError(c, "创建角色失败")
			return
		}
	}

	role := db.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		ParentID:    req.ParentID,
	}
	if err := h.repo.CreateRole(ctx, &role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, ErrCodeConflict, "角色名已存在")
			return
		}
		logrus.WithError(err).Error("failed to create role")
		InternalError(c, "创建角色失败")
		return
	}
	c.JSON(http.StatusCreated, converter.RoleToSummary(&role))
}

func (h *HTTPHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if req.ParentID != nil {
		if err := h.checkRoleParent(ctx, id, *req.ParentID); err != nil {
			if errors.Is(err, errRoleCycle) {
				BadRequest(c, ErrCodeInvalidRequest, "角色继承不允许成环")
				return
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "父角色不存在")
				return
			}
			logrus.WithError(err).Error("failed to validate role parent")
			InternalError(c, "更新角色失败")
			return
		}
	}

	updates := db.RoleUpdates{
		Name:        req.Name,
		Description: req.Description,
	}
	// ParentID 是 interface{}，直接塞入 nil 指针会变成"显式置空"。
	if req.ParentID != nil {
		updates.ParentID = *req.ParentID
	}
	if err := h.repo.UpdateRole(ctx, id, updates); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodeNotFound, "角色不存在")
		case errors.Is(err, model.ErrSystemRole):
			Forbidden(c, "系统内置角色不允许修改")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			Conflict(c, ErrCodeConflict, "角色名已存在")
		default:
			logrus.WithError(err).Error("failed to update role")
			InternalError(c, "更新角色失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

func (h *HTTPHandler) DeleteRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteRole(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodeNotFound, "角色不存在")
		case errors.Is(err, model.ErrSystemRole):
			ErrorResponse(c, http.StatusForbidden, ErrCodeRoleSystem, "系统内置角色不允许删除")
		case errors.Is(err, model.ErrReferenced):
			Conflict(c, ErrCodeInUse, "角色仍被用户使用，请先解除分配")
		default:
			logrus.WithError(err).Error("failed to delete role")
			InternalError(c, "删除角色失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role deleted"})
}

// SetRolePermissions 整体替换角色的权限集合。
func (h *HTTPHandler) SetRolePermissions(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.SetRolePermissions(ctx, id, req.IDs); err != nil {
		if errors.Is(err, model.ErrInvalidReference) {
			BadRequest(c, ErrCodeInvalidRequest, "存在无效的权限 ID")
			return
		}
		logrus.WithError(err).Error("failed to set role permissions")
		InternalError(c, "设置角色权限失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role permissions updated"})
}

// SetRoleMenus 整体替换角色的可见菜单集合。
func (h *HTTPHandler) SetRoleMenus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.SetRoleMenus(ctx, id, req.IDs); err != nil {
		if errors.Is(err, model.ErrInvalidReference) {
			BadRequest(c, ErrCodeInvalidRequest, "存在无效的菜单 ID")
			return
		}
		logrus.WithError(err).Error("failed to set role menus")
		InternalError(c, "设置角色菜单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role menus updated"})
}

var errRoleCycle = errors.New("role inheritance cycle")

// checkRoleParent 确认新的父角色存在且不会让继承链成环。
func (h *HTTPHandler) checkRoleParent(ctx context.Context, roleID, parentID uint) error {
	if roleID == parentID {
		return errRoleCycle
	}
	seen := map[uint]struct{}{roleID: {}}
	current := parentID
	for {
		if _, ok := seen[current]; ok {
			return errRoleCycle
		}
		seen[current] = struct{}{}
		role, err := h.repo.GetRoleByID(ctx, current)
		if err != nil {
			return err
		}
		if role.ParentID == nil {
			return nil
		}
		current = *role.ParentID
	}
}
