package quota

import (
	"context"

	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"go.uber.org/zap"
)

// Ledger 定义了每用户存储配额的记账接口
// 只暴露 Reserve/Release 两个原子操作，进程内不缓存已用量
type Ledger interface {
	// Reserve 上传前预占空间，配额不足返回 xerr.ErrQuotaExceeded
	Reserve(ctx context.Context, userID uint64, bytes uint64) error
	// Release 删除/清扫后归还空间，内部钳制下限为 0
	Release(ctx context.Context, userID uint64, bytes uint64) error
}

type ledger struct {
	userRepo repositories.UserRepository
}

var _ Ledger = (*ledger)(nil)

// NewLedger 创建一个新的 Ledger 实例
func NewLedger(userRepo repositories.UserRepository) Ledger {
	return &ledger{userRepo: userRepo}
}

func (l *ledger) Reserve(ctx context.Context, userID uint64, bytes uint64) error {
	if bytes == 0 {
		return nil
	}
	if err := l.userRepo.ReserveSpace(userID, bytes); err != nil {
		return err
	}
	logger.Debug("配额预占成功", zap.Uint64("userID", userID), zap.Uint64("bytes", bytes))
	return nil
}

func (l *ledger) Release(ctx context.Context, userID uint64, bytes uint64) error {
	if bytes == 0 {
		return nil
	}
	if err := l.userRepo.ReleaseSpace(userID, bytes); err != nil {
		logger.Error("配额归还失败", zap.Uint64("userID", userID), zap.Uint64("bytes", bytes), zap.Error(err))
		return err
	}
	logger.Debug("配额归还成功", zap.Uint64("userID", userID), zap.Uint64("bytes", bytes))
	return nil
}
