package transfer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/mq"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"go.uber.org/zap"
)

// TaskPublisher 抽象出任务投递能力，便于测试替换
// *mq.RabbitMQClient 天然满足该接口
type TaskPublisher interface {
	Publish(queueName string, body []byte) error
}

// UpdateMetadataRequest 元数据更新请求，nil 字段表示不修改
type UpdateMetadataRequest struct {
	FileName    *string
	Description *string
	Category    *string
	ExpiresAt   *time.Time
	// Password: nil 不修改，空串清除密码，其他值重设密码
	Password *string
}

// FileService 定义分享记录的所有者侧管理接口
type FileService interface {
	// ListUserFiles 分页查询用户自己的分享历史
	ListUserFiles(ctx context.Context, userID uint64, page, pageSize int) ([]models.File, int64, error)
	// ListAccessible 分页查询当前可取件的分享（未过期且未撤销）
	ListAccessible(ctx context.Context, page, pageSize int) ([]models.File, int64, error)
	// GetFileDetails 查询单条记录详情，仅所有者可见
	GetFileDetails(ctx context.Context, userID, fileID uint64) (*models.File, error)
	// UpdateMetadata 更新可变元数据，存储坐标与密钥哈希不可变
	UpdateMetadata(ctx context.Context, userID, fileID uint64, req *UpdateMetadataRequest) (*models.File, error)
	// Revoke 撤销分享，幂等：重复撤销直接成功
	Revoke(ctx context.Context, userID, fileID uint64) error
	// Delete 投递异步删除任务，由 worker 依次清理对象、记录和配额
	Delete(ctx context.Context, userID, fileID uint64) error
}

type fileService struct {
	fileRepo  repositories.FileRepository
	publisher TaskPublisher
	now       Clock
}

var _ FileService = (*fileService)(nil)

// NewFileService 创建一个新的 FileService 实例
func NewFileService(fileRepo repositories.FileRepository, publisher TaskPublisher, clock Clock) FileService {
	if clock == nil {
		clock = time.Now
	}
	return &fileService{
		fileRepo:  fileRepo,
		publisher: publisher,
		now:       clock,
	}
}

func (s *fileService) ListUserFiles(ctx context.Context, userID uint64, page, pageSize int) ([]models.File, int64, error) {
	return s.fileRepo.FindAllByUserID(userID, page, pageSize)
}

func (s *fileService) ListAccessible(ctx context.Context, page, pageSize int) ([]models.File, int64, error) {
	return s.fileRepo.FindAccessible(s.now(), page, pageSize)
}

// findOwned 查找记录并校验所有权
func (s *fileService) findOwned(userID, fileID uint64) (*models.File, error) {
	file, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}
	if file.UserID != userID {
		return nil, xerr.ErrPermissionDenied
	}
	return file, nil
}

func (s *fileService) GetFileDetails(ctx context.Context, userID, fileID uint64) (*models.File, error) {
	return s.findOwned(userID, fileID)
}

func (s *fileService) UpdateMetadata(ctx context.Context, userID, fileID uint64, req *UpdateMetadataRequest) (*models.File, error) {
	file, err := s.findOwned(userID, fileID)
	if err != nil {
		return nil, err
	}

	if req.FileName != nil {
		if *req.FileName == "" {
			return nil, xerr.ErrInvalidParams
		}
		file.FileName = *req.FileName
	}
	if req.Description != nil {
		file.Description = *req.Description
	}
	if req.Category != nil {
		if *req.Category == "" {
			return nil, xerr.ErrInvalidParams
		}
		file.Category = *req.Category
	}
	if req.ExpiresAt != nil {
		// 延长或缩短都允许，但不能改到过去
		if !req.ExpiresAt.After(s.now()) {
			return nil, xerr.ErrExpiryInvalid
		}
		file.ExpiresAt = *req.ExpiresAt
	}
	if req.Password != nil {
		if *req.Password == "" {
			file.Password = nil
		} else {
			hashed, err := utils.HashPassword(*req.Password)
			if err != nil {
				return nil, xerr.ErrInternalServer
			}
			file.Password = &hashed
		}
	}

	// 只写元数据列，并发的取件计数和撤销不会被快照覆盖
	if err := s.fileRepo.UpdateMetadata(file); err != nil {
		logger.Error("UpdateMetadata: 更新分享记录失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return nil, xerr.ErrDatabaseError
	}
	return file, nil
}

func (s *fileService) Revoke(ctx context.Context, userID, fileID uint64) error {
	file, err := s.findOwned(userID, fileID)
	if err != nil {
		return err
	}
	if file.IsRevoked {
		// 已撤销的分享重复撤销按成功处理
		return nil
	}

	if err := s.fileRepo.MarkRevoked(file.ID); err != nil {
		logger.Error("Revoke: 撤销分享失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return xerr.ErrDatabaseError
	}
	logger.Info("Revoke: 分享已撤销", zap.Uint64("fileID", fileID), zap.Uint64("userID", userID))
	return nil
}

func (s *fileService) Delete(ctx context.Context, userID, fileID uint64) error {
	file, err := s.findOwned(userID, fileID)
	if err != nil {
		return err
	}

	task := models.DeleteFileTask{
		FileID:    file.ID,
		UserID:    file.UserID,
		Size:      file.Size,
		OssBucket: file.OssBucket,
		OssKey:    file.OssKey,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return xerr.ErrInternalServer
	}

	if err := s.publisher.Publish(mq.FileDeleteQueue, body); err != nil {
		logger.Error("Delete: 投递删除任务失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return xerr.ErrMQError
	}
	logger.Info("Delete: 删除任务已投递", zap.Uint64("fileID", fileID), zap.Uint64("userID", userID))
	return nil
}
