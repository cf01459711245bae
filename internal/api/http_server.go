package api

import (
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"backoffice/internal/auth"
	"backoffice/internal/config"
	"backoffice/internal/model"
	"backoffice/internal/rbac"
	"backoffice/internal/service"
	"backoffice/internal/session"
	"backoffice/internal/storage"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager
	sessions          *session.Manager
	resolver          *rbac.Resolver
	pathMapper        *rbac.Mapper

	// 服务层
	authService *service.AuthService
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage, rdb *redis.Client) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	refreshTTL := time.Duration(cfg.RefreshTokenTTLHours) * time.Hour
	sessions := session.NewManager(rdb, authManager, refreshTTL)
	resolver := rbac.NewResolver(repo)
	pathMapper := rbac.NewMapper(repo)

	authService := service.NewAuthService(
		repo,
		sessions,
		resolver,
		service.LogNotifier{},
		time.Duration(cfg.ResetCodeTTLMinutes)*time.Minute,
		time.Duration(cfg.ResetCodeCooldownSeconds)*time.Second,
	)

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		sessions:          sessions,
		resolver:          resolver,
		pathMapper:        pathMapper,
		authService:       authService,
	}, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

// publicURL 把存储返回的相对路径拼接为可访问的 URL。
func (h *HTTPHandler) publicURL(storedPath string) string {
	trimmed := strings.TrimSpace(storedPath)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return h.storagePublicBase + "/" + strings.TrimLeft(trimmed, "/")
}
