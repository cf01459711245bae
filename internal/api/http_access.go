package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backoffice/internal/entity/dto"
	"backoffice/internal/rbac"
)

// CheckPermission 判定当前用户是否持有指定权限码。权限码必须是合法的三段式，
// 畸形的码一律拒绝。
func (h *HTTPHandler) CheckPermission(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "未认证")
		return
	}

	var req dto.CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	decision, err := h.evaluateFor(c.Request.Context(), user.ID, req.Code)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to resolve permissions")
		InternalError(c, "权限解析失败")
		return
	}

	c.JSON(http.StatusOK, dto.AccessDecision{
		Allowed:               decision.Allowed,
		MatchedPermissionCode: decision.MatchedCode,
		Reason:                decision.Reason,
	})
}

// CheckPath 判定当前用户是否可以访问某个导航路径。未映射到权限码的路径
// 默认放行。
func (h *HTTPHandler) CheckPath(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "未认证")
		return
	}

	var req dto.CheckPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	code, err := h.pathMapper.PermissionForPath(c.Request.Context(), req.Path)
	if err != nil {
		logrus.WithError(err).WithField("path", req.Path).Error("failed to map path to permission")
		InternalError(c, "路径解析失败")
		return
	}
	// 路径侧是宽松策略: 未映射或映射出畸形权限码都放行。
	if code == "" || !rbac.WellFormed(code) {
		c.JSON(http.StatusOK, dto.AccessDecision{
			Allowed: true,
			Reason:  "path is not gated by any permission",
		})
		return
	}

	decision, err := h.evaluateFor(c.Request.Context(), user.ID, code)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to resolve permissions")
		InternalError(c, "权限解析失败")
		return
	}

	c.JSON(http.StatusOK, dto.AccessDecision{
		Allowed:               decision.Allowed,
		MatchedPermissionCode: decision.MatchedCode,
		Reason:                decision.Reason,
	})
}
