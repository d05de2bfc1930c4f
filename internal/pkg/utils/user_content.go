package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/handlers/response"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
)

// GetUserIDFromContext 从 Gin 上下文中获取并验证用户ID
// 如果获取失败或类型不正确，会中止请求并返回错误
func GetUserIDFromContext(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		response.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "User ID not found in context")
		return 0, false
	}
	currentUserID, ok := userID.(uint64)
	if !ok {
		response.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Invalid user ID type in context")
		return 0, false
	}
	return currentUserID, true
}

// GetUserRoleFromContext 从 Gin 上下文中获取用户角色
func GetUserRoleFromContext(c *gin.Context) (string, bool) {
	role, exists := c.Get("role")
	if !exists {
		response.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "User role not found in context")
		return "", false
	}
	roleStr, ok := role.(string)
	if !ok {
		response.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Invalid user role type in context")
		return "", false
	}
	return roleStr, true
}
