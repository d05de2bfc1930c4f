package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/handlers"
	"github.com/vaporshare/go-vaporshare/internal/middlewares"
	"github.com/vaporshare/go-vaporshare/internal/models"
)

// SetupRouter 装配所有路由
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	fileHandler *handlers.FileHandler,
	shareHandler *handlers.ShareHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.GinLogger(), gin.Recovery())

	// API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authRequired := middlewares.AuthMiddleware(cfg.JWT.SecretKey)

	api := r.Group("/api/v1")
	{
		// 认证相关，注销需要登录态
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/logout", authRequired, authHandler.Logout)
		}

		// 用户资料
		user := api.Group("/user", authRequired)
		{
			user.GET("/profile", userHandler.Profile)
			user.PATCH("/profile", userHandler.UpdateProfile)
			user.GET("/usage", userHandler.Usage)
			user.PUT("/password", userHandler.ChangePassword)
		}

		// 发送方管理自己的分享，上传仅限 sender 角色
		files := api.Group("/files", authRequired)
		{
			files.POST("", middlewares.RequireRole(models.RoleSender), fileHandler.Upload)
			files.GET("", fileHandler.List)
			files.GET("/:id", fileHandler.Details)
			files.PUT("/:id", fileHandler.Update)
			files.POST("/:id/revoke", fileHandler.Revoke)
			files.DELETE("/:id", fileHandler.Delete)
		}

		// 取件侧公开接口，凭密钥访问，无需登录
		shares := api.Group("/shares")
		{
			shares.GET("", shareHandler.ListAccessible)
			shares.POST("/access", shareHandler.Access)
			shares.GET("/:key/download", shareHandler.Download)
		}
	}

	return r
}
