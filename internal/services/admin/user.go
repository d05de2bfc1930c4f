package admin

import (
	"context"
	"errors"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StorageUsage 用户存储占用概览
type StorageUsage struct {
	UsedSpace  uint64 `json:"used_space"`
	TotalSpace uint64 `json:"total_space"`
}

// UserService 负责用户资料类操作
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService 创建一个新的 UserService 实例
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Profile 查询用户资料
func (s *UserService) Profile(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}
	return user, nil
}

// Usage 查询用户当前的存储占用
func (s *UserService) Usage(ctx context.Context, userID uint64) (*StorageUsage, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StorageUsage{
		UsedSpace:  user.UsedSpace,
		TotalSpace: user.TotalSpace,
	}, nil
}

// ChangePassword 已登录用户修改密码，需要先校验旧密码
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return xerr.ErrInvalidParams
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return xerr.ErrInvalidCredentials
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return xerr.ErrInternalServer
	}
	if err := s.userRepo.UpdatePasswordHash(userID, hashedPassword); err != nil {
		logger.Error("ChangePassword: 更新密码失败", zap.Uint64("userID", userID), zap.Error(err))
		return xerr.ErrDatabaseError
	}
	return nil
}

// UpdateProfileRequest 资料更新请求，nil 字段表示不修改
type UpdateProfileRequest struct {
	Email *string
}

// UpdateProfile 更新用户资料，目前支持换绑邮箱
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Email == nil || *req.Email == user.Email {
		return user, nil
	}

	// 先查重给出明确错误，唯一索引兜底并发窗口
	if other, err := s.userRepo.GetUserByEmail(*req.Email); err == nil && other.ID != userID {
		return nil, xerr.ErrEmailAlreadyExists
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerr.ErrDatabaseError
	}

	if err := s.userRepo.UpdateEmail(userID, *req.Email); err != nil {
		if errors.Is(err, xerr.ErrEmailAlreadyExists) {
			return nil, err
		}
		logger.Error("UpdateProfile: 更新邮箱失败", zap.Uint64("userID", userID), zap.Error(err))
		return nil, xerr.ErrDatabaseError
	}
	user.Email = *req.Email
	return user, nil
}
