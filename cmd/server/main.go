package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backoffice/internal/api"
	"backoffice/internal/config"
	"backoffice/internal/model"
	"backoffice/internal/session"
	"backoffice/internal/storage"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	if repo != nil {
		if err := model.SeedDefaults(context.Background(), repo, cfg); err != nil {
			logrus.WithError(err).Warn("failed to seed default data")
		}
	}

	// 会话存储不可用时降级运行：登录只签发访问令牌，刷新不可用。
	rdb, err := session.NewRedisClient(cfg)
	if err != nil {
		if rdb == nil {
			logrus.WithError(err).Error("failed to initialise session store client")
			return
		}
		logrus.WithError(err).Warn("session store unreachable, running with access tokens only")
	}
	defer rdb.Close()

	store, err := storage.NewStorage(cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise storage")
		return
	}

	httpHandler, err := api.NewHTTPHandler(cfg, repo, store, rdb)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", httpHandler.Register)
	authGroup.POST("/login", httpHandler.Login)
	authGroup.POST("/refresh", httpHandler.Refresh)
	authGroup.POST("/reset-code", httpHandler.RequestResetCode)
	authGroup.POST("/reset-password", httpHandler.ResetPassword)
	authGroup.GET("/me", httpHandler.AuthMiddleware(), httpHandler.Me)
	authGroup.POST("/logout", httpHandler.AuthMiddleware(), httpHandler.Logout)

	protected := apiGroup.Group("")
	protected.Use(httpHandler.AuthMiddleware())
	protected.POST("/access/check-permission", httpHandler.CheckPermission)
	protected.POST("/access/check-path", httpHandler.CheckPath)
	protected.POST("/files/avatar", httpHandler.UploadAvatar)

	userAdmin := protected.Group("/users")
	userAdmin.GET("", httpHandler.RequirePermission("system:users:view"), httpHandler.ListUsers)
	userAdmin.GET("/:id", httpHandler.RequirePermission("system:users:view"), httpHandler.GetUser)
	userAdmin.POST("", httpHandler.RequirePermission("system:users:add"), httpHandler.CreateUser)
	userAdmin.PATCH("/:id", httpHandler.RequirePermission("system:users:edit"), httpHandler.UpdateUser)
	userAdmin.DELETE("/:id", httpHandler.RequirePermission("system:users:delete"), httpHandler.DeleteUser)

	roleAdmin := protected.Group("/roles")
	roleAdmin.GET("", httpHandler.RequirePermission("system:roles:view"), httpHandler.ListRoles)
	roleAdmin.GET("/:id", httpHandler.RequirePermission("system:roles:view"), httpHandler.GetRole)
	roleAdmin.POST("", httpHandler.RequirePermission("system:roles:add"), httpHandler.CreateRole)
	roleAdmin.PATCH("/:id", httpHandler.RequirePermission("system:roles:edit"), httpHandler.UpdateRole)
	roleAdmin.DELETE("/:id", httpHandler.RequirePermission("system:roles:delete"), httpHandler.DeleteRole)
	roleAdmin.PUT("/:id/permissions", httpHandler.RequirePermission("system:roles:edit"), httpHandler.SetRolePermissions)
	roleAdmin.PUT("/:id/menus", httpHandler.RequirePermission("system:roles:edit"), httpHandler.SetRoleMenus)

	permissionAdmin := protected.Group("/permissions")
	permissionAdmin.GET("", httpHandler.RequirePermission("system:permissions:view"), httpHandler.ListPermissions)
	permissionAdmin.POST("", httpHandler.RequirePermission("system:permissions:add"), httpHandler.CreatePermission)
	permissionAdmin.PATCH("/:id", httpHandler.RequirePermission("system:permissions:edit"), httpHandler.UpdatePermission)
	permissionAdmin.DELETE("/:id", httpHandler.RequirePermission("system:permissions:delete"), httpHandler.DeletePermission)

	menuAdmin := protected.Group("/menus")
	menuAdmin.GET("", httpHandler.RequirePermission("system:menus:view"), httpHandler.MenuTree)
	menuAdmin.GET("/:id", httpHandler.RequirePermission("system:menus:view"), httpHandler.GetMenu)
	menuAdmin.POST("", httpHandler.RequirePermission("system:menus:add"), httpHandler.CreateMenu)
	menuAdmin.PATCH("/:id", httpHandler.RequirePermission("system:menus:edit"), httpHandler.UpdateMenu)
	menuAdmin.DELETE("/:id", httpHandler.RequirePermission("system:menus:delete"), httpHandler.DeleteMenu)
	menuAdmin.PUT("/:id/permissions", httpHandler.RequirePermission("system:menus:edit"), httpHandler.SetMenuPermissions)

	sessionAdmin := protected.Group("/sessions")
	sessionAdmin.Use(httpHandler.RequirePermission("system:sessions:manage"))
	sessionAdmin.GET("", httpHandler.ListSessions)
	sessionAdmin.GET("/:id", httpHandler.GetSession)
	sessionAdmin.DELETE("/:id", httpHandler.RevokeSession)

	if localProvider, ok := store.(storage.LocalBaseDirProvider); ok {
		publicPrefix := strings.TrimSpace(cfg.StoragePublicBaseURL)
		if publicPrefix == "" {
			publicPrefix = "/files"
		}
		if !strings.HasPrefix(publicPrefix, "http://") && !strings.HasPrefix(publicPrefix, "https://") {
			if !strings.HasPrefix(publicPrefix, "/") {
				publicPrefix = "/" + publicPrefix
			}
			r.Static(publicPrefix, localProvider.LocalBaseDir())
		}
	}

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logger.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  300 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("服务器启动失败")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
