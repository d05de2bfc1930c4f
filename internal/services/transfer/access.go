package transfer

import (
	"context"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"go.uber.org/zap"
)

// AccessService 定义取件侧的访问控制接口
type AccessService interface {
	// Resolve 按分享密钥明文解析一次取件请求，依次检查
	// 密钥有效性、过期、撤销、取件密码，全部通过后原子记录访问审计。
	// 返回 xerr.ErrSharePasswordRequired 时附带脱敏后的记录元信息。
	Resolve(ctx context.Context, shareKey string, providedPassword *string, ip string) (*models.File, error)
	// OpenContent 打开文件内容流，调用方负责关闭 Reader
	OpenContent(ctx context.Context, file *models.File) (storage.GetObjectResult, error)
	// PresignedURL 为取件生成限时的预签名下载链接
	PresignedURL(ctx context.Context, file *models.File) (string, error)
}

type accessService struct {
	fileRepo repositories.FileRepository
	storage  storage.StorageService
	cfg      *config.Config
	now      Clock
}

var _ AccessService = (*accessService)(nil)

// NewAccessService 创建一个新的 AccessService 实例
// clock 传 nil 时使用系统时间
func NewAccessService(
	fileRepo repositories.FileRepository,
	ss storage.StorageService,
	cfg *config.Config,
	clock Clock,
) AccessService {
	if clock == nil {
		clock = time.Now
	}
	return &accessService{
		fileRepo: fileRepo,
		storage:  ss,
		cfg:      cfg,
		now:      clock,
	}
}

// Resolve 的检查顺序是固定的：不存在 → 已过期 → 已撤销 → 需要密码 → 密码错误。
// 前面的门挡住后，后面的状态不再泄露（比如已撤销的分享不会提示需要密码）。
func (s *accessService) Resolve(ctx context.Context, shareKey string, providedPassword *string, ip string) (*models.File, error) {
	file, err := s.fileRepo.FindByKeyHash(utils.HashShareKey(shareKey))
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, xerr.ErrShareNotFound
	}

	now := s.now()
	if !now.Before(file.ExpiresAt) {
		// 过期记录留给清扫任务回收，取件路径只拒绝不删除
		return nil, xerr.ErrShareExpired
	}
	if file.IsRevoked {
		return nil, xerr.ErrShareRevoked
	}

	if file.HasPassword() {
		if providedPassword == nil || *providedPassword == "" {
			// 附带脱敏元信息，前端据此渲染密码输入页
			return sanitize(file), xerr.ErrSharePasswordRequired
		}
		if !utils.CheckPasswordHash(*providedPassword, *file.Password) {
			return nil, xerr.ErrSharePasswordIncorrect
		}
	}

	// 所有门通过，原子记录访问日志并自增下载计数
	if err := s.fileRepo.RecordAccess(ctx, file.ID, ip, now); err != nil {
		logger.Error("Resolve: 记录访问审计失败",
			zap.Uint64("fileID", file.ID), zap.String("ip", ip), zap.Error(err))
		return nil, xerr.ErrDatabaseError
	}
	file.DownloadCount++

	logger.Info("Resolve: 取件成功",
		zap.Uint64("fileID", file.ID),
		zap.String("fileName", file.FileName),
		zap.String("ip", ip))
	return file, nil
}

func (s *accessService) OpenContent(ctx context.Context, file *models.File) (storage.GetObjectResult, error) {
	result, err := s.storage.GetObject(ctx, file.OssBucket, file.OssKey)
	if err != nil {
		logger.Error("OpenContent: 读取对象失败",
			zap.Uint64("fileID", file.ID),
			zap.String("bucket", file.OssBucket),
			zap.String("object", file.OssKey),
			zap.Error(err))
		return storage.GetObjectResult{}, xerr.ErrStorageError
	}
	return result, nil
}

func (s *accessService) PresignedURL(ctx context.Context, file *models.File) (string, error) {
	expiry := time.Duration(s.cfg.Storage.PresignedURLExpiry) * time.Minute
	url, err := s.storage.PresignedGetURL(ctx, file.OssBucket, file.OssKey, file.FileName, expiry)
	if err != nil {
		logger.Error("PresignedURL: 生成预签名链接失败",
			zap.Uint64("fileID", file.ID), zap.Error(err))
		return "", xerr.ErrStorageError
	}
	return url, nil
}

// sanitize 返回只含展示元信息的副本，不带存储位置、密钥哈希和密码哈希
func sanitize(file *models.File) *models.File {
	clean := &models.File{
		ID:          file.ID,
		FileName:    file.FileName,
		Description: file.Description,
		Category:    file.Category,
		ExpiresAt:   file.ExpiresAt,
		Size:        file.Size,
		CreatedAt:   file.CreatedAt,
	}
	if file.User != nil {
		clean.User = &models.User{Username: file.User.Username}
	}
	return clean
}
