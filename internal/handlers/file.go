package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/services/transfer"
)

// FileHandler 处理发送方对自己分享的管理请求
type FileHandler struct {
	uploadService transfer.UploadService
	fileService   transfer.FileService
}

// NewFileHandler 创建一个新的 FileHandler 实例
func NewFileHandler(uploadService transfer.UploadService, fileService transfer.FileService) *FileHandler {
	return &FileHandler{
		uploadService: uploadService,
		fileService:   fileService,
	}
}

// Upload 上传文件并创建分享
// multipart 表单：file 必填；description/category/password/expires_at 可选
// 响应中的 share_key 是分享密钥明文，仅此一次返回
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "缺少上传文件")
		return
	}

	req := &transfer.UploadRequest{
		FileName:    fileHeader.Filename,
		Description: c.PostForm("description"),
		Category:    c.DefaultPostForm("category", "other"),
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}
	if password := c.PostForm("password"); password != "" {
		req.Password = &password
	}
	if expiresAt := c.PostForm("expires_at"); expiresAt != "" {
		t, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil {
			response.Error(c, http.StatusBadRequest, xerr.ExpiryInvalidCode, xerr.ErrExpiryInvalid.Error())
			return
		}
		req.ExpiresAt = &t
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "读取上传文件失败")
		return
	}
	defer src.Close()

	result, err := h.uploadService.Upload(c.Request.Context(), userID, req, src)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "上传成功", gin.H{
		"file":      result.File,
		"share_key": result.ShareKey,
	})
}

// List 分页查询当前用户的分享历史
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)

	files, total, err := h.fileService.ListUserFiles(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "查询成功", gin.H{
		"list":      files,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Details 查询单条分享详情，仅所有者可见
func (h *FileHandler) Details(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	file, err := h.fileService.GetFileDetails(c.Request.Context(), userID, fileID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "查询成功", file)
}

type updateFileRequest struct {
	FileName    *string `json:"filename"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	ExpiresAt   *string `json:"expires_at"` // RFC3339
	Password    *string `json:"password"`   // 空串表示清除取件密码
}

// Update 更新分享的可变元数据
func (h *FileHandler) Update(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	var body updateFileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	req := &transfer.UpdateMetadataRequest{
		FileName:    body.FileName,
		Description: body.Description,
		Category:    body.Category,
		Password:    body.Password,
	}
	if body.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *body.ExpiresAt)
		if err != nil {
			response.Error(c, http.StatusBadRequest, xerr.ExpiryInvalidCode, xerr.ErrExpiryInvalid.Error())
			return
		}
		req.ExpiresAt = &t
	}

	file, err := h.fileService.UpdateMetadata(c.Request.Context(), userID, fileID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "更新成功", file)
}

// Revoke 撤销分享，重复撤销幂等成功
func (h *FileHandler) Revoke(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := h.fileService.Revoke(c.Request.Context(), userID, fileID); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "分享已撤销", nil)
}

// Delete 删除分享（异步清理对象与配额）
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := parseFileID(c)
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), userID, fileID); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, "删除任务已提交", nil)
}

// parseFileID 解析路径参数中的文件ID
func parseFileID(c *gin.Context) (uint64, bool) {
	fileID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || fileID == 0 {
		response.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的文件ID")
		return 0, false
	}
	return fileID, true
}

// parsePagination 解析分页参数，默认第 1 页每页 20 条，上限 100 条
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
