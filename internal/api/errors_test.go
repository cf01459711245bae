package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		status         int
		code           string
		message        string
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "BadRequest",
			status:         http.StatusBadRequest,
			code:           ErrCodeInvalidRequest,
			message:        "无效的请求",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrCodeInvalidRequest,
			expectedMsg:    "无效的请求",
		},
		{
			name:           "Unauthorized",
			status:         http.StatusUnauthorized,
			code:           ErrCodeInvalidCredentials,
			message:        "用户名或密码错误",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   ErrCodeInvalidCredentials,
			expectedMsg:    "用户名或密码错误",
		},
		{
			name:           "NotFound",
			status:         http.StatusNotFound,
			code:           ErrCodeUserNotFound,
			message:        "用户不存在",
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrCodeUserNotFound,
			expectedMsg:    "用户不存在",
		},
		{
			name:           "InternalError",
			status:         http.StatusInternalServerError,
			code:           ErrCodeInternalError,
			message:        "服务器内部错误",
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   ErrCodeInternalError,
			expectedMsg:    "服务器内部错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.status, tt.code, tt.message)

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
			if apiErr.Message != tt.expectedMsg {
				t.Errorf("expected message %s, got %s", tt.expectedMsg, apiErr.Message)
			}
		})
	}
}

func TestMissingFieldIncludesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	MissingField(c, "username")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var apiErr APIError
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if apiErr.Code != ErrCodeMissingField {
		t.Errorf("expected code %s, got %s", ErrCodeMissingField, apiErr.Code)
	}
	details, ok := apiErr.Details.(map[string]any)
	if !ok || details["field"] != "username" {
		t.Errorf("expected field detail, got %v", apiErr.Details)
	}
}
