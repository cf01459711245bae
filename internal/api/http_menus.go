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

// MenuTree 返回完整的菜单树，供菜单管理界面使用。
func (h *HTTPHandler) MenuTree(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	menus, err := h.repo.ListMenus(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list menus")
		InternalError(c, "加载菜单失败")
		return
	}
	c.JSON(http.StatusOK, dto.MenuTreeResponse{Menus: converter.MenusToTree(menus)})
}

func (h *HTTPHandler) GetMenu(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	menu, err := h.repo.GetMenuByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeNotFound, "菜单不存在")
			return
		}
		logrus.WithError(err).Error("failed to load menu")
		InternalError(c, "加载菜单失败")
		return
	}
	bindings, err := h.repo.FindMenuPermissionBindings(ctx, menu.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to load menu bindings")
		InternalError(c, "加载菜单权限失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"menu":        converter.MenuToNode(menu),
		"permissions": bindings,
	})
}

func (h *HTTPHandler) CreateMenu(c *gin.Context) {
	var req dto.MenuCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if req.ParentID != nil {
		if _, err := h.repo.GetMenuByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "父菜单不存在")
				return
			}
			logrus.WithError(err).Error("failed to load parent menu")
			InternalError(c, "创建菜单失败")
			return
		}
	}

	menu := db.Menu{
		Name:      strings.TrimSpace(req.Name),
		Path:      strings.TrimSpace(req.Path),
		Icon:      strings.TrimSpace(req.Icon),
		SortOrder: req.SortOrder,
		Hidden:    req.Hidden,
		ParentID:  req.ParentID,
	}
	if err := h.repo.CreateMenu(ctx, &menu); err != nil {
		logrus.WithError(err).Error("failed to create menu")
		InternalError(c, "创建菜单失败")
		return
	}
	c.JSON(http.StatusCreated, converter.MenuToNode(&menu))
}

func (h *HTTPHandler) UpdateMenu(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.MenuUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if req.ParentID != nil {
		if err := h.checkMenuParent(ctx, id, *req.ParentID); err != nil {
			if errors.Is(err, errMenuCycle) {
				BadRequest(c, ErrCodeInvalidRequest, "菜单层级不允许成环")
				return
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "父菜单不存在")
				return
			}
			logrus.WithError(err).Error("failed to validate menu parent")
			InternalError(c, "更新菜单失败")
			return
		}
	}

	updates := db.MenuUpdates{
		Name:      req.Name,
		Path:      req.Path,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		Hidden:    req.Hidden,
	}
	// ParentID 是 interface{}，直接塞入 nil 指针会变成"显式置空"。
	if req.ParentID != nil {
		updates.ParentID = *req.ParentID
	}
	if err := h.repo.UpdateMenu(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeNotFound, "菜单不存在")
			return
		}
		logrus.WithError(err).Error("failed to update menu")
		InternalError(c, "更新菜单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu updated"})
}

func (h *HTTPHandler) DeleteMenu(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteMenu(ctx, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, ErrCodeNotFound, "菜单不存在")
		case errors.Is(err, model.ErrReferenced):
			Conflict(c, ErrCodeInUse, "菜单存在子节点，请先删除子菜单")
		default:
			logrus.WithError(err).Error("failed to delete menu")
			InternalError(c, "删除菜单失败")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu deleted"})
}

// SetMenuPermissions 整体替换菜单的权限绑定。
func (h *HTTPHandler) SetMenuPermissions(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.MenuAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.SetMenuPermissions(ctx, id, req.Permissions); err != nil {
		if errors.Is(err, model.ErrInvalidReference) {
			BadRequest(c, ErrCodeInvalidRequest, "存在无效的权限 ID")
			return
		}
		logrus.WithError(err).Error("failed to set menu permissions")
		InternalError(c, "设置菜单权限失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu permissions updated"})
}

var errMenuCycle = errors.New("menu hierarchy cycle")

// checkMenuParent 确认新的父菜单存在且不会让层级成环。
func (h *HTTPHandler) checkMenuParent(ctx context.Context, menuID, parentID uint) error {
	if menuID == parentID {
		return errMenuCycle
	}
	seen := map[uint]struct{}{menuID: {}}
	current := parentID
	for {
		if _, ok := seen[current]; ok {
			return errMenuCycle
		}
		seen[current] = struct{}{}
		menu, err := h.repo.GetMenuByID(ctx, current)
		if err != nil {
			return err
		}
		if menu.ParentID == nil {
			return nil
		}
		current = *menu.ParentID
	}
}
