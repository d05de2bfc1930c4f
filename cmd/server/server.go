package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/handlers"
	"github.com/vaporshare/go-vaporshare/internal/pkg/cache"
	"github.com/vaporshare/go-vaporshare/internal/pkg/email"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/mq"
	"github.com/vaporshare/go-vaporshare/internal/pkg/mq/worker"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"github.com/vaporshare/go-vaporshare/internal/router"
	"github.com/vaporshare/go-vaporshare/internal/services/admin"
	"github.com/vaporshare/go-vaporshare/internal/services/quota"
	"github.com/vaporshare/go-vaporshare/internal/services/sweeper"
	"github.com/vaporshare/go-vaporshare/internal/services/transfer"
	"github.com/vaporshare/go-vaporshare/internal/setup"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	db             *gorm.DB
	redisClient    *redis.Client
	rabbitMQClient *mq.RabbitMQClient
	sweeper        *sweeper.Sweeper
}

// NewServer 负责构建所有依赖
func NewServer(cfg *config.Config) (*Server, error) {
	// 初始化数据库连接
	mysqlDB, err := setup.InitMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
	}

	// 初始化 Redis 连接
	redisClient, err := setup.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// 初始化 RabbitMQ
	rabbitMQClient, err := mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// 初始化对象存储并确保存储桶存在
	ss, err := storage.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage service: %w", err)
	}
	if err := ensureBucket(ss, storage.ActiveBucket(cfg)); err != nil {
		return nil, err
	}

	// 初始化 Repositories
	fileRepo := repositories.NewFileRepository(mysqlDB)
	userRepo := repositories.NewUserRepository(mysqlDB)

	// 初始化基础服务
	cacheService := cache.NewRedisCache(redisClient)
	mailer := email.NewSender(&cfg.SMTP)
	ledger := quota.NewLedger(userRepo)

	// 初始化 Services
	authService := admin.NewAuthService(userRepo, cacheService, mailer, cfg)
	userService := admin.NewUserService(userRepo)
	uploadService := transfer.NewUploadService(fileRepo, userRepo, ledger, ss, cfg, nil)
	accessService := transfer.NewAccessService(fileRepo, ss, cfg, nil)
	fileService := transfer.NewFileService(fileRepo, rabbitMQClient, nil)
	expirySweeper := sweeper.NewSweeper(fileRepo, ledger, ss, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize, nil)

	// 初始化 Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	fileHandler := handlers.NewFileHandler(uploadService, fileService)
	shareHandler := handlers.NewShareHandler(accessService, fileService)

	// 启动所有后台 Worker
	if err := worker.StartAllWorkers(rabbitMQClient, fileRepo, ledger, ss); err != nil {
		return nil, fmt.Errorf("failed to start workers: %w", err)
	}

	// 初始化 Gin 引擎和注册路由
	engine := router.SetupRouter(cfg, authHandler, userHandler, fileHandler, shareHandler)

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	return &Server{
		router:         engine,
		httpServer:     httpServer,
		db:             mysqlDB,
		redisClient:    redisClient,
		rabbitMQClient: rabbitMQClient,
		sweeper:        expirySweeper,
	}, nil
}

// Run 启动服务器和清扫任务，并处理优雅关机
func (s *Server) Run(ctx context.Context, stopChan chan os.Signal) {
	// GORM v2 依赖连接池不需要手动关闭，Redis 和 MQ 需要
	defer s.rabbitMQClient.Close()
	defer s.redisClient.Close()

	// 启动过期分享清扫任务
	s.sweeper.Start(ctx)

	// 启动 HTTP 服务器
	go func() {
		logger.Info(fmt.Sprintf("Server is running on %s", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 等待停止信号
	<-stopChan
	logger.Info("Shutting down server...")

	// 先停清扫任务，等当前轮次结束
	s.sweeper.Stop()

	// 优雅关机
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited gracefully")
}

// ensureBucket 确保存储桶存在，不存在则创建
func ensureBucket(ss storage.StorageService, bucketName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := ss.IsBucketExist(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := ss.MakeBucket(ctx, bucketName); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}
	logger.Info("Bucket created", zap.String("bucket", bucketName))
	return nil
}
