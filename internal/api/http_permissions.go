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
	"backoffice/internal/rbac"
)

func (h *HTTPHandler) ListPermissions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	permissions, err := h.repo.ListPermissions(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list permissions")
		InternalError(c, "加载权限列表失败")
		return
	}
	c.JSON(http.StatusOK, dto.PermissionListResponse{
		Permissions: converter.PermissionsToSummaries(permissions),
	})
}

func (h *HTTPHandler) CreatePermission(c *gin.Context) {
	var req dto.PermissionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	code := strings.TrimSpace(req.Code)
	if !rbac.WellFormed(code) {
		BadRequest(c, ErrCodeInvalidRequest, "权限码必须是 module:resource:action 的三段式")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	permission := db.Permission{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.repo.CreatePermission(ctx, &permission); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, ErrCodeConflict, "权限码已存在")
			return
		}
		logrus.WithError(err).Error("failed to create permission")
		InternalError(c, "创建权限失败")
		return
	}
	c.JSON(http.StatusCreated, converter.PermissionToSummary(&permission))
}

func (h *HTTPHandler) UpdatePermission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.PermissionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	updates := db.PermissionUpdates{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.repo.UpdatePermission(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeNotFound, "权限不存在")
			return
		}
		logrus.WithError(err).Error("failed to update permission")
		InternalError(c, "更新权限失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission updated"})
}

func (h *HTTPHandler) DeletePermission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeletePermission(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodeNotFound, "权限不存在")
		case errors.Is(err, model.ErrReferenced):
			Conflict(c, ErrCodeInUse, "权限仍被角色或菜单引用，请先解除绑定")
		default:
			logrus.WithError(err).Error("failed to delete permission")
			InternalError(c, "删除权限失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission deleted"})
}
