package repositories

import (
	"errors"
	"fmt"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint64) (*models.User, error)
	// UpdatePasswordHash 只更新密码哈希列，不回写整行
	UpdatePasswordHash(userID uint64, hash string) error
	// UpdateEmail 只更新邮箱列，唯一索引冲突返回 xerr.ErrEmailAlreadyExists
	UpdateEmail(userID uint64, email string) error

	// ReserveSpace 原子地为用户预占 bytes 字节的存储空间
	// 超出配额返回 xerr.ErrQuotaExceeded，不做应用层读改写
	ReserveSpace(userID uint64, bytes uint64) error
	// ReleaseSpace 原子地归还 bytes 字节，下限钳制为 0
	// 出现钳制说明配额记账有 bug，记录告警日志
	ReleaseSpace(userID uint64, bytes uint64) error
}

type userRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*userRepository)(nil)

// NewUserRepository 创建一个新的 UserRepository 实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(user *models.User) error {
	err := r.db.Create(user).Error
	if err != nil {
		logger.Error("Error creating user", zap.Error(err))
		return err
	}
	return nil
}

func (r *userRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Error("Error getting user by username", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Error("Error getting user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByID(id uint64) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在，返回 nil
		}
		logger.Error("Error getting user by ID", zap.Uint64("userID", id), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdatePasswordHash(userID uint64, hash string) error {
	err := r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("password_hash", hash).Error
	if err != nil {
		logger.Error("Error updating password hash", zap.Uint64("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

func (r *userRepository) UpdateEmail(userID uint64, email string) error {
	err := r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("email", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return xerr.ErrEmailAlreadyExists
		}
		logger.Error("Error updating email", zap.Uint64("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

func (r *userRepository) ReserveSpace(userID uint64, bytes uint64) error {
	// 单条带条件的 UPDATE，数据库层保证并发预占不会丢更新或超卖
	result := r.db.Model(&models.User{}).
		Where("id = ? AND used_space + ? <= total_space", userID, bytes).
		UpdateColumn("used_space", gorm.Expr("used_space + ?", bytes))
	if result.Error != nil {
		return fmt.Errorf("预占存储空间失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// 区分用户不存在和配额不足
		user, err := r.GetUserByID(userID)
		if err != nil {
			return fmt.Errorf("预占存储空间失败: %w", err)
		}
		if user == nil {
			return xerr.ErrUserNotFound
		}
		return xerr.ErrQuotaExceeded
	}
	return nil
}

func (r *userRepository) ReleaseSpace(userID uint64, bytes uint64) error {
	// 带下限保护的条件更新，避免 used_space 下溢
	result := r.db.Model(&models.User{}).
		Where("id = ? AND used_space >= ?", userID, bytes).
		UpdateColumn("used_space", gorm.Expr("used_space - ?", bytes))
	if result.Error != nil {
		return fmt.Errorf("归还存储空间失败: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 走到这里说明 used_space < bytes，配额记账出了问题，钳制为 0 并告警
	user, err := r.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("归还存储空间失败: %w", err)
	}
	if user == nil {
		return xerr.ErrUserNotFound
	}

	logger.Warn("归还空间超过已用量，钳制为 0，存在记账异常",
		zap.Uint64("userID", userID),
		zap.Uint64("release", bytes),
		zap.Uint64("usedSpace", user.UsedSpace))
	result = r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("used_space", 0)
	if result.Error != nil {
		return fmt.Errorf("归还存储空间失败: %w", result.Error)
	}
	return nil
}
