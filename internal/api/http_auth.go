package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backoffice/internal/entity/converter"
	"backoffice/internal/entity/dto"
	"backoffice/internal/service"
	"backoffice/internal/session"
)

func (h *HTTPHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.authService.Login(ctx, req, c.ClientIP())
	if err != nil {
		h.respondAuthError(c, err, req.Username)
		return
	}
	h.decorateAuthResponse(resp)
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.authService.Register(ctx, req)
	if err != nil {
		h.respondAuthError(c, err, req.Username)
		return
	}
	h.decorateAuthResponse(resp)
	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.respondAuthError(c, err, "")
		return
	}
	h.decorateAuthResponse(resp)
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "未认证")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.authService.Logout(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to revoke session on logout")
	}
	// 登出总是成功，即使会话早已失效。
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me 返回当前用户的概要、角色、可见菜单和生效权限码。
func (h *HTTPHandler) Me(c *gin.Context) {
	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "未认证")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, requestUser.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to load current user")
		InternalError(c, "加载用户失败")
		return
	}
	roles, err := h.repo.FindRolesByUserID(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to load roles")
		InternalError(c, "加载角色失败")
		return
	}
	roleIDs := converter.RoleIDs(roles)
	menus, err := h.repo.FindMenusByRoleIDs(ctx, roleIDs)
	if err != nil {
		logrus.WithError(err).Error("failed to load menus")
		InternalError(c, "加载菜单失败")
		return
	}
	codes, err := h.resolver.EffectiveCodes(ctx, roleIDs)
	if err != nil {
		logrus.WithError(err).Error("failed to resolve permissions")
		InternalError(c, "权限解析失败")
		return
	}

	summary := converter.UserToSummary(user)
	summary.AvatarURL = h.publicURL(user.AvatarPath)
	c.JSON(http.StatusOK, dto.AuthResponse{
		User:        summary,
		Roles:       converter.RolesToSummaries(roles),
		Menus:       converter.MenusToTree(menus),
		Permissions: codes,
	})
}

func (h *HTTPHandler) RequestResetCode(c *gin.Context) {
	var req dto.ResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.authService.RequestPasswordResetCode(ctx, req); err != nil {
		h.respondAuthError(c, err, req.Target)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

func (h *HTTPHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.authService.ResetPassword(ctx, req); err != nil {
		h.respondAuthError(c, err, req.Target)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// decorateAuthResponse 补充仅处理器层掌握的展示信息。
func (h *HTTPHandler) decorateAuthResponse(resp *dto.AuthResponse) {
	if resp == nil {
		return
	}
	if resp.User.AvatarURL != "" {
		resp.User.AvatarURL = h.publicURL(resp.User.AvatarURL)
	}
}

// respondAuthError 把认证业务错误映射为 API 错误码。
func (h *HTTPHandler) respondAuthError(c *gin.Context, err error, subject string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		logrus.WithField("subject", subject).Warn("login attempt failed")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "用户名或密码错误")
	case errors.Is(err, service.ErrAccountInactive):
		// 禁用/锁定的账户按未授权处理，而不是 403。
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeUserDisabled, "账户已被禁用")
	case errors.Is(err, session.ErrInvalidRefreshToken):
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeSessionExpired, "刷新令牌无效或已过期")
	case errors.Is(err, service.ErrUsernameTaken):
		Conflict(c, ErrCodeUsernameExists, "用户名已被占用")
	case errors.Is(err, service.ErrEmailTaken):
		Conflict(c, ErrCodeEmailExists, "邮箱已被注册")
	case errors.Is(err, service.ErrPhoneTaken):
		Conflict(c, ErrCodePhoneExists, "手机号已被注册")
	case errors.Is(err, service.ErrUserNotFound):
		BadRequest(c, ErrCodeUserNotFound, "用户不存在")
	case errors.Is(err, service.ErrCodeCooldown):
		BadRequest(c, ErrCodeCodeCooldown, "验证码发送过于频繁，请稍后再试")
	case errors.Is(err, service.ErrCodeInvalid):
		BadRequest(c, ErrCodeCodeInvalid, "验证码无效或已过期")
	default:
		logrus.WithError(err).Error("auth operation failed")
		InternalError(c, "操作失败")
	}
}
