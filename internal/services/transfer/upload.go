package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"github.com/vaporshare/go-vaporshare/internal/services/quota"
	"go.uber.org/zap"
)

// Clock 可注入的时间源，测试时替换
type Clock func() time.Time

// 密钥哈希撞库时的重试上限，理论上几乎不可能触发
const maxKeyAttempts = 3

// 未指定过期时间时默认 24 小时后过期
const defaultExpiry = 24 * time.Hour

// UploadRequest 上传请求参数
type UploadRequest struct {
	FileName    string
	Description string
	Category    string
	Size        int64
	ContentType string
	Password    *string    // 可选的取件密码明文，服务内哈希
	ExpiresAt   *time.Time // 可选的绝对过期时间
}

// UploadResult 上传结果
// ShareKey 是分享密钥明文，仅在这里返回一次，之后不可再取回
type UploadResult struct {
	File     *models.File
	ShareKey string
}

// UploadService 定义了上传编排服务的接口
type UploadService interface {
	Upload(ctx context.Context, userID uint64, req *UploadRequest, content io.Reader) (*UploadResult, error)
}

type uploadService struct {
	fileRepo repositories.FileRepository
	userRepo repositories.UserRepository
	ledger   quota.Ledger
	storage  storage.StorageService
	cfg      *config.Config
	now      Clock
}

var _ UploadService = (*uploadService)(nil)

// NewUploadService 创建一个新的 UploadService 实例
// clock 传 nil 时使用系统时间
func NewUploadService(
	fileRepo repositories.FileRepository,
	userRepo repositories.UserRepository,
	ledger quota.Ledger,
	ss storage.StorageService,
	cfg *config.Config,
	clock Clock,
) UploadService {
	if clock == nil {
		clock = time.Now
	}
	return &uploadService{
		fileRepo: fileRepo,
		userRepo: userRepo,
		ledger:   ledger,
		storage:  ss,
		cfg:      cfg,
		now:      clock,
	}
}

// Upload 处理一次完整的上传编排：
// 角色校验 → 配额预占 → 对象存储写入 → 签发密钥并落库，失败路径逐级补偿
func (s *uploadService) Upload(ctx context.Context, userID uint64, req *UploadRequest, content io.Reader) (*UploadResult, error) {
	// 1. 验证上传者身份与参数
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}
	if user.Role != models.RoleSender {
		return nil, xerr.ErrPermissionDenied
	}

	if req.FileName == "" || req.Category == "" {
		return nil, xerr.ErrInvalidParams
	}
	if req.Size <= 0 {
		return nil, xerr.ErrInvalidParams
	}

	now := s.now()
	expiresAt := now.Add(defaultExpiry)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, xerr.ErrExpiryInvalid
		}
		expiresAt = *req.ExpiresAt
	}

	// 2. 先预占配额，配额不足时不触碰对象存储
	if err := s.ledger.Reserve(ctx, userID, uint64(req.Size)); err != nil {
		return nil, err
	}

	// 3. 写入对象存储，失败则归还配额
	bucketName := storage.ActiveBucket(s.cfg)
	objectName := fmt.Sprintf("shares/%d/%s/%s", userID, uuid.New().String(), req.FileName)
	putResult, err := s.storage.PutObject(ctx, bucketName, objectName, content, req.Size, req.ContentType)
	if err != nil {
		logger.Error("Upload: 对象存储写入失败，归还配额",
			zap.Uint64("userID", userID), zap.String("object", objectName), zap.Error(err))
		if relErr := s.ledger.Release(ctx, userID, uint64(req.Size)); relErr != nil {
			logger.Error("Upload: 补偿归还配额失败", zap.Uint64("userID", userID), zap.Error(relErr))
		}
		return nil, xerr.ErrStorageError
	}

	// 4. 可选的取件密码，落库前哈希
	var passwordHash *string
	if req.Password != nil && *req.Password != "" {
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			s.compensate(ctx, userID, bucketName, objectName, uint64(req.Size))
			return nil, xerr.ErrInternalServer
		}
		passwordHash = &hashed
	}

	// 5. 签发分享密钥并持久化记录
	// key_hash 唯一索引冲突时换新密钥重试，有限次后放弃
	var duplicate bool
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := utils.GenerateShareKey()
		if err != nil {
			s.compensate(ctx, userID, bucketName, objectName, uint64(req.Size))
			return nil, xerr.ErrInternalServer
		}

		file := &models.File{
			UserID:      userID,
			FileName:    req.FileName,
			Description: req.Description,
			Category:    req.Category,
			KeyHash:     utils.HashShareKey(key),
			Password:    passwordHash,
			ExpiresAt:   expiresAt,
			Size:        uint64(req.Size),
			OssBucket:   putResult.Bucket,
			OssKey:      putResult.Key,
			FileURL:     s.storage.GetObjectURL(putResult.Bucket, putResult.Key),
		}

		err = s.fileRepo.Create(file)
		if err == nil {
			logger.Info("Upload: 分享记录创建成功",
				zap.Uint64("fileID", file.ID),
				zap.Uint64("userID", userID),
				zap.Uint64("size", file.Size),
				zap.Time("expiresAt", expiresAt))
			// 明文密钥只在这里返回一次
			return &UploadResult{File: file, ShareKey: key}, nil
		}
		if errors.Is(err, xerr.ErrDuplicateKey) {
			duplicate = true
			logger.Warn("Upload: 分享密钥哈希冲突，重新生成",
				zap.Uint64("userID", userID), zap.Int("attempt", attempt+1))
			continue
		}

		// 其他数据库错误不再重试
		logger.Error("Upload: 创建分享记录失败", zap.Uint64("userID", userID), zap.Error(err))
		duplicate = false
		break
	}

	// 落库失败：尽力删除已上传对象并归还配额
	s.compensate(ctx, userID, bucketName, objectName, uint64(req.Size))
	if duplicate {
		logger.Error("Upload: 密钥生成重试耗尽", zap.Uint64("userID", userID))
		return nil, xerr.ErrKeyCollision
	}
	return nil, xerr.ErrDatabaseError
}

// compensate 回滚一次失败的上传：删除已写入的对象并归还配额，二者都尽力而为
func (s *uploadService) compensate(ctx context.Context, userID uint64, bucketName, objectName string, size uint64) {
	if err := s.storage.RemoveObject(ctx, bucketName, objectName); err != nil && !s.storage.IsNotFound(err) {
		logger.Error("Upload: 补偿删除对象失败，存在孤儿对象",
			zap.String("bucket", bucketName), zap.String("object", objectName), zap.Error(err))
	}
	if err := s.ledger.Release(ctx, userID, size); err != nil {
		logger.Error("Upload: 补偿归还配额失败", zap.Uint64("userID", userID), zap.Error(err))
	}
}
