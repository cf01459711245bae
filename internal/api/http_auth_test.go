package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"backoffice/internal/service"
	"backoffice/internal/session"
)

func TestRespondAuthErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &HTTPHandler{}

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		// 禁用账户登录同样是 401，不是 403。
		{"inactive account", service.ErrAccountInactive, http.StatusUnauthorized, ErrCodeUserDisabled},
		{"invalid refresh token", session.ErrInvalidRefreshToken, http.StatusUnauthorized, ErrCodeSessionExpired},
		{"username taken", service.ErrUsernameTaken, http.StatusConflict, ErrCodeUsernameExists},
		// 重置流程的冷却和未知目标都按 400 处理。
		{"code cooldown", service.ErrCodeCooldown, http.StatusBadRequest, ErrCodeCodeCooldown},
		{"unknown reset target", service.ErrUserNotFound, http.StatusBadRequest, ErrCodeUserNotFound},
		{"invalid code", service.ErrCodeInvalid, http.StatusBadRequest, ErrCodeCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.respondAuthError(c, tt.err, "subject")

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var apiErr APIError
			if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if apiErr.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, apiErr.Code)
			}
		})
	}
}
