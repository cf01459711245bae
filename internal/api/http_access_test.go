package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"backoffice/internal/entity/dto"
	"backoffice/internal/rbac"
)

func TestCheckPathMalformedDerivedCodeAllows(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 静态表里残留了非三段式的权限码时，路径侧直接放行而不是拒绝。
	h := &HTTPHandler{
		pathMapper: rbac.NewMapperWithTable(nil, map[string]string{"/legacy": "broken-code"}),
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/access/check-path", strings.NewReader(`{"path":"/legacy"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(currentUserContextKey, &RequestUser{ID: 1, Username: "alice"})

	h.CheckPath(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var decision dto.AccessDecision
	if err := json.Unmarshal(w.Body.Bytes(), &decision); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected malformed derived code to allow, got %+v", decision)
	}
}
