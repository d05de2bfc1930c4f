package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/services/admin"
)

// UserHandler 处理用户资料相关请求
type UserHandler struct {
	userService *admin.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例
func NewUserHandler(userService *admin.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Profile 查询当前用户资料与存储占用
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "查询成功", gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"role":        user.Role,
		"used_space":  user.UsedSpace,
		"total_space": user.TotalSpace,
		"created_at":  user.CreatedAt,
	})
}

// Usage 查询当前用户的存储占用
func (h *UserHandler) Usage(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	usage, err := h.userService.Usage(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "查询成功", usage)
}

type updateProfileRequest struct {
	Email *string `json:"email" binding:"omitempty,email"`
}

// UpdateProfile 更新当前用户资料（换绑邮箱）
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &admin.UpdateProfileRequest{Email: req.Email})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "资料更新成功", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}

// ChangePassword 修改当前用户密码
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "密码修改成功", nil)
}
