package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"gorm.io/gorm"
)

// FileRepository defines the interface for file record data access.
type FileRepository interface {
	// Create 创建分享记录，key_hash 唯一索引冲突时返回 xerr.ErrDuplicateKey
	Create(file *models.File) error
	FindByID(id uint64) (*models.File, error)
	// FindByKeyHash 按分享密钥哈希查找，未找到返回 (nil, nil)
	FindByKeyHash(keyHash string) (*models.File, error)
	// FindAllByUserID 查找用户的分享历史，按创建时间倒序分页
	FindAllByUserID(userID uint64, page, pageSize int) ([]models.File, int64, error)
	// FindAccessible 查找当前可取件的记录（未过期且未撤销），供取件方浏览
	FindAccessible(now time.Time, page, pageSize int) ([]models.File, int64, error)
	// FindExpired 查找已过期的记录，供清扫任务使用
	FindExpired(now time.Time, limit int) ([]models.File, error)
	// UpdateMetadata 只写所有者可变的元数据列
	// 不做整行回写，避免用旧快照覆盖并发变化的 download_count / is_revoked
	UpdateMetadata(file *models.File) error
	// MarkRevoked 置撤销位，只写这一列；重复撤销是无副作用的成功
	MarkRevoked(fileID uint64) error
	// RecordAccess 在同一事务中追加访问日志并自增下载计数
	// 保证 download_count 与 file_access_logs 行数始终一致
	RecordAccess(ctx context.Context, fileID uint64, ip string, accessedAt time.Time) error
	// Delete 硬删除记录及其访问日志，未找到返回 xerr.ErrFileNotFound
	Delete(ctx context.Context, fileID uint64) error
}

type fileRepository struct {
	db *gorm.DB
}

var _ FileRepository = (*fileRepository)(nil)

// NewFileRepository 创建一个新的 FileRepository 实例
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *models.File) error {
	err := r.db.Create(file).Error
	if err != nil {
		// 依赖 gorm.Config{TranslateError: true} 将驱动的唯一键冲突翻译为 ErrDuplicatedKey
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return xerr.ErrDuplicateKey
		}
		return fmt.Errorf("创建分享记录失败: %w", err)
	}
	return nil
}

func (r *fileRepository) FindByID(id uint64) (*models.File, error) {
	var file models.File
	err := r.db.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享记录失败: %w", err)
	}
	return &file, nil
}

func (r *fileRepository) FindByKeyHash(keyHash string) (*models.File, error) {
	var file models.File
	// 预加载上传者信息，取件响应中需要展示发送者
	err := r.db.Preload("User").Where("key_hash = ?", keyHash).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按密钥哈希查询分享记录失败: %w", err)
	}
	return &file, nil
}

func (r *fileRepository) FindAllByUserID(userID uint64, page, pageSize int) ([]models.File, int64, error) {
	var files []models.File
	var total int64

	offset := (page - 1) * pageSize
	query := r.db.Model(&models.File{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分享总数失败: %w", err)
	}

	err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&files).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分享历史失败: %w", err)
	}
	return files, total, nil
}

func (r *fileRepository) FindAccessible(now time.Time, page, pageSize int) ([]models.File, int64, error) {
	var files []models.File
	var total int64

	offset := (page - 1) * pageSize
	query := r.db.Model(&models.File{}).Where("expires_at > ? AND is_revoked = ?", now, false)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计可取件记录总数失败: %w", err)
	}

	err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Preload("User").Find(&files).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询可取件记录失败: %w", err)
	}
	return files, total, nil
}

func (r *fileRepository) FindExpired(now time.Time, limit int) ([]models.File, error) {
	var files []models.File
	query := r.db.Where("expires_at <= ?", now).Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("查询过期记录失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) UpdateMetadata(file *models.File) error {
	// 按列更新而不是 Save 整行，快照里的 download_count / is_revoked 不参与写回
	err := r.db.Model(&models.File{}).Where("id = ?", file.ID).
		Updates(map[string]interface{}{
			"file_name":   file.FileName,
			"description": file.Description,
			"category":    file.Category,
			"expires_at":  file.ExpiresAt,
			"password":    file.Password,
		}).Error
	if err != nil {
		return fmt.Errorf("更新分享元数据失败: %w", err)
	}
	return nil
}

func (r *fileRepository) MarkRevoked(fileID uint64) error {
	err := r.db.Model(&models.File{}).Where("id = ?", fileID).
		UpdateColumn("is_revoked", true).Error
	if err != nil {
		return fmt.Errorf("撤销分享失败: %w", err)
	}
	return nil
}

func (r *fileRepository) RecordAccess(ctx context.Context, fileID uint64, ip string, accessedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		log := &models.FileAccessLog{
			FileID:     fileID,
			IP:         ip,
			AccessedAt: accessedAt,
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("追加访问日志失败: %w", err)
		}

		result := tx.Model(&models.File{}).Where("id = ?", fileID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
		if result.Error != nil {
			return fmt.Errorf("更新下载计数失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return xerr.ErrFileNotFound
		}
		return nil
	})
}

func (r *fileRepository) Delete(ctx context.Context, fileID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先删子表日志，再删主记录
		if err := tx.Where("file_id = ?", fileID).Delete(&models.FileAccessLog{}).Error; err != nil {
			return fmt.Errorf("删除访问日志失败: %w", err)
		}

		result := tx.Delete(&models.File{}, fileID)
		if result.Error != nil {
			return fmt.Errorf("删除分享记录失败: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return xerr.ErrFileNotFound
		}
		return nil
	})
}
