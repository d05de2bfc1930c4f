package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"github.com/vaporshare/go-vaporshare/internal/services/quota"
	"go.uber.org/zap"
)

// Clock 可注入的时间源，测试时替换
type Clock func() time.Time

// SweepResult 单轮清扫的统计结果
type SweepResult struct {
	Attempted int           // 本轮发现的过期记录数
	Succeeded int           // 完整回收（对象+配额+记录）的数量
	Failed    int           // 回收失败、留待下一轮的数量
	Duration  time.Duration // 本轮耗时
}

// Sweeper 周期扫描过期的分享记录并回收其对象、配额和数据库行
// 单条记录的失败只记日志不中断本轮，下一轮重试
type Sweeper struct {
	fileRepo  repositories.FileRepository
	ledger    quota.Ledger
	storage   storage.StorageService
	interval  time.Duration
	batchSize int
	now       Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper 创建一个新的 Sweeper 实例
// clock 传 nil 时使用系统时间
func NewSweeper(
	fileRepo repositories.FileRepository,
	ledger quota.Ledger,
	ss storage.StorageService,
	interval time.Duration,
	batchSize int,
	clock Clock,
) *Sweeper {
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{
		fileRepo:  fileRepo,
		ledger:    ledger,
		storage:   ss,
		interval:  interval,
		batchSize: batchSize,
		now:       clock,
	}
}

// Start 启动后台清扫循环，启动时立即执行一轮，之后按 interval 周期执行
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		logger.Info("Sweeper: 清扫任务启动",
			zap.Duration("interval", s.interval), zap.Int("batchSize", s.batchSize))

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Sweeper: 清扫任务退出")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop 停止清扫循环并等待当前轮次结束
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce 执行一轮清扫并返回统计结果
func (s *Sweeper) RunOnce(ctx context.Context) SweepResult {
	start := time.Now()
	result := SweepResult{}

	expired, err := s.fileRepo.FindExpired(s.now(), s.batchSize)
	if err != nil {
		logger.Error("Sweeper: 查询过期记录失败", zap.Error(err))
		result.Duration = time.Since(start)
		return result
	}
	result.Attempted = len(expired)
	if len(expired) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	for i := range expired {
		select {
		case <-ctx.Done():
			result.Failed = result.Attempted - result.Succeeded
			result.Duration = time.Since(start)
			return result
		default:
		}

		if err := s.reclaim(ctx, &expired[i]); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	result.Duration = time.Since(start)
	logger.Info("Sweeper: 本轮清扫完成",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	return result
}

// reclaim 回收一条过期记录，顺序固定：对象 → 配额 → 数据库行
// 对象删除失败时保留记录，避免产生无法定位的孤儿对象
func (s *Sweeper) reclaim(ctx context.Context, file *models.File) error {
	if err := s.storage.RemoveObject(ctx, file.OssBucket, file.OssKey); err != nil {
		if !s.storage.IsNotFound(err) {
			logger.Error("Sweeper: 删除对象失败，记录留待下一轮",
				zap.Uint64("fileID", file.ID),
				zap.String("bucket", file.OssBucket),
				zap.String("object", file.OssKey),
				zap.Error(err))
			return err
		}
		// 对象已不存在，按删除成功继续回收
		logger.Warn("Sweeper: 对象已不存在，继续回收记录",
			zap.Uint64("fileID", file.ID), zap.String("object", file.OssKey))
	}

	if err := s.ledger.Release(ctx, file.UserID, file.Size); err != nil {
		logger.Error("Sweeper: 归还配额失败",
			zap.Uint64("fileID", file.ID), zap.Uint64("userID", file.UserID), zap.Error(err))
		return err
	}

	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		logger.Error("Sweeper: 删除分享记录失败",
			zap.Uint64("fileID", file.ID), zap.Error(err))
		return err
	}

	logger.Info("Sweeper: 过期分享已回收",
		zap.Uint64("fileID", file.ID),
		zap.Uint64("userID", file.UserID),
		zap.Uint64("size", file.Size))
	return nil
}
