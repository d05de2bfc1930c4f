package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/services/transfer"
)

// ShareHandler 处理取件方的公开访问请求
// 取件不需要登录，凭分享密钥（和可选的取件密码）访问
type ShareHandler struct {
	accessService transfer.AccessService
	fileService   transfer.FileService
}

// NewShareHandler 创建一个新的 ShareHandler 实例
func NewShareHandler(accessService transfer.AccessService, fileService transfer.FileService) *ShareHandler {
	return &ShareHandler{
		accessService: accessService,
		fileService:   fileService,
	}
}

// ListAccessible 分页浏览当前可取件的分享
func (h *ShareHandler) ListAccessible(c *gin.Context) {
	page, pageSize := parsePagination(c)

	files, total, err := h.fileService.ListAccessible(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]gin.H, 0, len(files))
	for i := range files {
		list = append(list, shareView(&files[i]))
	}
	response.Success(c, http.StatusOK, "查询成功", gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type accessRequest struct {
	ShareKey string  `json:"share_key" binding:"required"`
	Password *string `json:"password"`
}

// Access 凭分享密钥取件，通过访问控制后返回元数据和限时下载链接
// 需要取件密码而未提供时返回 403 及脱敏的记录元信息
func (h *ShareHandler) Access(c *gin.Context) {
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	file, err := h.accessService.Resolve(c.Request.Context(), req.ShareKey, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, xerr.ErrSharePasswordRequired) && file != nil {
			// 附带脱敏元信息，方便前端渲染密码输入页
			response.JSONResponse(c, http.StatusForbidden, xerr.SharePasswordRequiredCode,
				xerr.ErrSharePasswordRequired.Error(), shareView(file))
			return
		}
		respondError(c, err)
		return
	}

	downloadURL, err := h.accessService.PresignedURL(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	view := shareView(file)
	view["download_count"] = file.DownloadCount
	view["download_url"] = downloadURL
	response.Success(c, http.StatusOK, "取件成功", view)
}

// Download 凭分享密钥直接下载文件内容
// 与 Access 一样走完整的访问控制，每次下载都记录审计
// 取件密码从请求头读取，不走查询串，避免明文密码进入 URL 和访问日志
func (h *ShareHandler) Download(c *gin.Context) {
	shareKey := c.Param("key")
	var password *string
	if p := c.GetHeader("X-Share-Password"); p != "" {
		password = &p
	}

	file, err := h.accessService.Resolve(c.Request.Context(), shareKey, password, c.ClientIP())
	if err != nil {
		if errors.Is(err, xerr.ErrSharePasswordRequired) && file != nil {
			response.JSONResponse(c, http.StatusForbidden, xerr.SharePasswordRequiredCode,
				xerr.ErrSharePasswordRequired.Error(), shareView(file))
			return
		}
		respondError(c, err)
		return
	}

	content, err := h.accessService.OpenContent(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	defer content.Reader.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, file.FileName),
	}
	c.DataFromReader(http.StatusOK, content.Size, content.MimeType, content.Reader, extraHeaders)
}

// shareView 取件方可见的记录视图，不含存储坐标和任何哈希
func shareView(file *models.File) gin.H {
	view := gin.H{
		"id":          file.ID,
		"filename":    file.FileName,
		"description": file.Description,
		"category":    file.Category,
		"size":        file.Size,
		"expires_at":  file.ExpiresAt,
		"created_at":  file.CreatedAt,
	}
	if file.User != nil {
		view["sender"] = file.User.Username
	}
	return view
}
