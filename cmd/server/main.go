package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// 初始化日志系统
	if err := os.MkdirAll("logs", 0755); err != nil {
		logger.Fatal("Failed to create logs directory", zap.Error(err))
	}
	logger.InitLogger(cfg.Log.OutputPath, cfg.Log.ErrorPath, cfg.Log.Level)
	defer logger.Sync() // 确保在应用退出时刷新所有缓冲的日志条目

	// 构建服务器及其全部依赖
	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to build server", zap.Error(err))
	}

	// 监听退出信号，优雅关机
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Run(ctx, stopChan)

	logger.Info("VaporShare 服务已退出")
}
