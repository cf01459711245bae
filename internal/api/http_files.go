package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backoffice/internal/entity/db"
	"backoffice/internal/entity/dto"
	"backoffice/internal/storage"
)

// 头像上传限制 2MB，仅接受常见图片格式。
const maxAvatarBytes = 2 << 20

var allowedAvatarExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
}

// UploadAvatar 接收 multipart 头像文件，保存后更新当前用户的头像路径。
func (h *HTTPHandler) UploadAvatar(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "未认证")
		return
	}
	if h.storage == nil {
		ServiceUnavailable(c, "文件存储不可用")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		MissingField(c, "file")
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		BadRequest(c, ErrCodeInvalidRequest, "头像文件不能超过 2MB")
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	if _, ok := allowedAvatarExtensions[ext]; !ok {
		BadRequest(c, ErrCodeInvalidRequest, "不支持的图片格式")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("failed to open uploaded avatar")
		InternalError(c, "读取上传文件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		logrus.WithError(err).Error("failed to read uploaded avatar")
		InternalError(c, "读取上传文件失败")
		return
	}
	if len(data) > maxAvatarBytes {
		BadRequest(c, ErrCodeInvalidRequest, "头像文件不能超过 2MB")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	storedPath, err := h.storage.Save(ctx, data, storage.SaveOptions{
		Category:  "avatars",
		Extension: ext,
		BaseName:  fmt.Sprintf("u%d", user.ID),
	})
	if err != nil {
		logrus.WithError(err).Error("failed to store avatar")
		InternalError(c, "保存头像失败")
		return
	}

	if err := h.repo.UpdateUser(ctx, user.ID, db.UserUpdates{AvatarPath: &storedPath}); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to update avatar path")
		InternalError(c, "更新头像失败")
		return
	}

	c.JSON(http.StatusOK, dto.AvatarResponse{AvatarURL: h.publicURL(storedPath)})
}
