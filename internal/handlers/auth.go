package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/services/admin"
)

// AuthHandler 处理注册、登录与会话相关的请求
type AuthHandler struct {
	authService *admin.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例
func NewAuthHandler(authService *admin.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required,oneof=sender receiver"`
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "注册成功", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

type loginRequest struct {
	Account  string `json:"account" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
}

// Login 用户登录，返回 access/refresh 令牌对
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Account, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "登录成功", pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 轮换令牌对
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "刷新成功", pair)
}

// Logout 注销当前用户会话
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "注销成功", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword 发起密码重置，发送重置邮件
// 不论邮箱是否注册都返回成功
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "如果该邮箱已注册，重置邮件已发送", nil)
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=64"`
}

// ResetPassword 使用邮件中的 Token 完成密码重置
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, xerr.ValidationFailedCode, err.Error())
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "密码重置成功", nil)
}
