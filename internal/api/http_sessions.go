package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backoffice/internal/entity/dto"
)

// ListSessions 列出所有在线会话，仅供运维巡检。
func (h *HTTPHandler) ListSessions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.sessions.Sessions(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list sessions")
		ServiceUnavailable(c, "会话存储不可用")
		return
	}
	c.JSON(http.StatusOK, dto.SessionListResponse{Sessions: sessions})
}

// GetSession 查询指定用户的在线会话。
func (h *HTTPHandler) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	info, err := h.sessions.SessionFor(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to load session")
		ServiceUnavailable(c, "会话存储不可用")
		return
	}
	if info == nil {
		NotFound(c, ErrCodeNotFound, "该用户没有在线会话")
		return
	}
	c.JSON(http.StatusOK, info)
}

// RevokeSession 强制下线指定用户。重复吊销视为成功。
func (h *HTTPHandler) RevokeSession(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.sessions.Revoke(ctx, id); err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to revoke session")
		ServiceUnavailable(c, "会话存储不可用")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session revoked"})
}
