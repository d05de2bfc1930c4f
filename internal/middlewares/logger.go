package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"go.uber.org/zap"
)

// GinLogger 使用 zap 记录每个 HTTP 请求的访问日志
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("http request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
			zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
		)
	}
}
