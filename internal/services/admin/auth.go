package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/cache"
	"github.com/vaporshare/go-vaporshare/internal/pkg/email"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	passwordResetPrefix   = "password_reset:"

	// 密码重置链接的有效期
	passwordResetTTL = 15 * time.Minute
	// 密码重置 Token 的随机字节数
	passwordResetTokenBytes = 32
)

// TokenPair 登录/刷新返回的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token 剩余有效秒数
}

// AuthService 负责注册、登录与会话管理
type AuthService struct {
	userRepo repositories.UserRepository
	cache    cache.Cache
	mailer   *email.Sender
	cfg      *config.Config
}

// NewAuthService 创建一个新的 AuthService 实例
func NewAuthService(userRepo repositories.UserRepository, c cache.Cache, mailer *email.Sender, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cache:    c,
		mailer:   mailer,
		cfg:      cfg,
	}
}

// Register 注册新用户，角色只能是 sender 或 receiver
// 新用户按配置获得默认存储配额
func (s *AuthService) Register(ctx context.Context, username, password, email, role string) (*models.User, error) {
	if role != models.RoleSender && role != models.RoleReceiver {
		return nil, xerr.ErrInvalidParams
	}

	// 用户名和邮箱都要求唯一
	if _, err := s.userRepo.GetUserByUsername(username); err == nil {
		return nil, xerr.ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetUserByEmail(email); err == nil {
		return nil, xerr.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		logger.Error("Register: 密码哈希失败", zap.Error(err))
		return nil, xerr.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Email:        email,
		Role:         role,
		TotalSpace:   s.cfg.Quota.DefaultTotalSpace,
		UsedSpace:    0,
		Status:       1,
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, xerr.ErrDatabaseError
	}

	logger.Info("Register: 用户注册成功",
		zap.Uint64("userID", user.ID),
		zap.String("username", username),
		zap.String("role", role))
	return user, nil
}

// Login 支持用户名或邮箱登录，成功后返回令牌对
// refresh token 存入 Redis，每个用户同一时间只有一个有效的 refresh token
func (s *AuthService) Login(ctx context.Context, account, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(account)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.userRepo.GetUserByEmail(account)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, xerr.ErrInvalidCredentials
	}
	if user.Status != 1 {
		return nil, xerr.ErrForbidden
	}

	return s.issueTokenPair(ctx, user)
}

// RefreshToken 校验 refresh token 并轮换令牌对
// 旧 refresh token 即刻失效，防止重放
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := utils.ParseToken(refreshToken, s.cfg.JWT.SecretKey)
	if err != nil {
		return nil, xerr.ErrTokenInvalid
	}

	// 必须与 Redis 中保存的一致，登出或轮换后旧 token 作废
	var stored string
	cacheKey := refreshTokenKeyPrefix + fmt.Sprintf("%d", claims.UserID)
	if err := s.cache.Get(ctx, cacheKey, &stored); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, xerr.ErrTokenInvalid
		}
		return nil, err
	}
	if stored != refreshToken {
		return nil, xerr.ErrTokenInvalid
	}

	user, err := s.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != 1 {
		return nil, xerr.ErrTokenInvalid
	}

	return s.issueTokenPair(ctx, user)
}

// Logout 删除用户的 refresh token，access token 等自然过期
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	cacheKey := refreshTokenKeyPrefix + fmt.Sprintf("%d", userID)
	if err := s.cache.Del(ctx, cacheKey); err != nil {
		logger.Error("Logout: 删除 refresh token 失败", zap.Uint64("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

// ForgotPassword 发起密码重置流程
// 为了不泄露邮箱是否注册，无论邮箱存在与否都返回成功
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetUserByEmail(emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("ForgotPassword: 邮箱未注册，静默返回", zap.String("email", emailAddr))
			return nil
		}
		return err
	}

	token, err := utils.GenerateSecureToken(passwordResetTokenBytes)
	if err != nil {
		return xerr.ErrInternalServer
	}

	// Redis 只存 Token 哈希，有效期 15 分钟
	cacheKey := passwordResetPrefix + utils.HashToken(token)
	if err := s.cache.Set(ctx, cacheKey, user.ID, passwordResetTTL); err != nil {
		logger.Error("ForgotPassword: 保存重置 token 失败", zap.Uint64("userID", user.ID), zap.Error(err))
		return xerr.ErrInternalServer
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.Server.BaseURL, token)
	if err := s.mailer.SendPasswordReset(user.Email, resetURL); err != nil {
		return xerr.ErrEmailError
	}

	logger.Info("ForgotPassword: 重置邮件已发送", zap.Uint64("userID", user.ID))
	return nil
}

// ResetPassword 使用邮件中的 Token 重置密码
// 成功后同时使该用户的 refresh token 失效，强制重新登录
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return xerr.ErrInvalidParams
	}

	cacheKey := passwordResetPrefix + utils.HashToken(token)
	var userID uint64
	if err := s.cache.Get(ctx, cacheKey, &userID); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return xerr.ErrTokenInvalid
		}
		return err
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return xerr.ErrUserNotFound
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return xerr.ErrInternalServer
	}
	if err := s.userRepo.UpdatePasswordHash(user.ID, hashedPassword); err != nil {
		return xerr.ErrDatabaseError
	}

	// 重置 token 一次性使用，旧会话全部作废
	if err := s.cache.Del(ctx, cacheKey, refreshTokenKeyPrefix+fmt.Sprintf("%d", userID)); err != nil {
		logger.Warn("ResetPassword: 清理缓存失败", zap.Uint64("userID", userID), zap.Error(err))
	}

	logger.Info("ResetPassword: 密码重置成功", zap.Uint64("userID", userID))
	return nil
}

// issueTokenPair 签发新的 access/refresh 令牌对并保存 refresh token
func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := utils.GenerateToken(
		user.ID, user.Username, user.Role,
		s.cfg.JWT.SecretKey, s.cfg.JWT.Issuer, s.cfg.JWT.ExpiresIn)
	if err != nil {
		logger.Error("issueTokenPair: 签发 access token 失败", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, xerr.ErrInternalServer
	}

	refreshToken, err := utils.GenerateToken(
		user.ID, user.Username, user.Role,
		s.cfg.JWT.SecretKey, s.cfg.JWT.Issuer, s.cfg.JWT.RefreshExpiresIn)
	if err != nil {
		logger.Error("issueTokenPair: 签发 refresh token 失败", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, xerr.ErrInternalServer
	}

	cacheKey := refreshTokenKeyPrefix + fmt.Sprintf("%d", user.ID)
	if err := s.cache.Set(ctx, cacheKey, refreshToken, s.cfg.JWT.RefreshExpiresIn); err != nil {
		logger.Error("issueTokenPair: 保存 refresh token 失败", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, xerr.ErrInternalServer
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.ExpiresIn.Seconds()),
	}, nil
}
