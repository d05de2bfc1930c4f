package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/streadway/amqp"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/mq"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"github.com/vaporshare/go-vaporshare/internal/services/quota"
	"go.uber.org/zap"
)

// DeleteWorker 消费异步删除队列，完成对象、记录和配额的级联清理
// 删除顺序固定：对象 → 数据库记录 → 配额，对象删除失败则 Nack 重回队列
type DeleteWorker struct {
	mqClient *mq.RabbitMQClient
	fileRepo repositories.FileRepository
	ledger   quota.Ledger
	storage  storage.StorageService
}

// NewDeleteWorker 创建一个新的 DeleteWorker 实例
func NewDeleteWorker(
	mqClient *mq.RabbitMQClient,
	fileRepo repositories.FileRepository,
	ledger quota.Ledger,
	ss storage.StorageService,
) *DeleteWorker {
	return &DeleteWorker{
		mqClient: mqClient,
		fileRepo: fileRepo,
		ledger:   ledger,
		storage:  ss,
	}
}

// Start 声明队列并开始消费
func (w *DeleteWorker) Start() error {
	if _, err := w.mqClient.DeclareQueue(mq.FileDeleteQueue); err != nil {
		return err
	}
	return w.mqClient.Consume(mq.FileDeleteQueue, w.handleDelete)
}

func (w *DeleteWorker) handleDelete(msg amqp.Delivery) {
	var task models.DeleteFileTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		// 消息格式损坏，重投也不会成功，直接丢弃
		logger.Error("DeleteWorker: 删除任务反序列化失败，丢弃消息", zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			logger.Error("DeleteWorker: Nack 失败", zap.Error(err))
		}
		return
	}

	ctx := context.Background()

	// 1. 删除对象，失败则重回队列等待重试，不能先删数据库记录
	if err := w.storage.RemoveObject(ctx, task.OssBucket, task.OssKey); err != nil && !w.storage.IsNotFound(err) {
		logger.Error("DeleteWorker: 删除对象失败，消息重回队列",
			zap.Uint64("fileID", task.FileID),
			zap.String("bucket", task.OssBucket),
			zap.String("object", task.OssKey),
			zap.Error(err))
		if err := msg.Nack(false, true); err != nil {
			logger.Error("DeleteWorker: Nack 失败", zap.Error(err))
		}
		return
	}

	// 2. 删除数据库记录，记录已不存在视为幂等重投，直接确认
	if err := w.fileRepo.Delete(ctx, task.FileID); err != nil {
		if errors.Is(err, xerr.ErrFileNotFound) {
			logger.Warn("DeleteWorker: 记录已不存在，按已删除处理", zap.Uint64("fileID", task.FileID))
			if err := msg.Ack(false); err != nil {
				logger.Error("DeleteWorker: Ack 失败", zap.Error(err))
			}
			return
		}
		logger.Error("DeleteWorker: 删除分享记录失败，消息重回队列",
			zap.Uint64("fileID", task.FileID), zap.Error(err))
		if err := msg.Nack(false, true); err != nil {
			logger.Error("DeleteWorker: Nack 失败", zap.Error(err))
		}
		return
	}

	// 3. 归还配额，失败只告警，不回滚前两步
	if err := w.ledger.Release(ctx, task.UserID, task.Size); err != nil {
		logger.Error("DeleteWorker: 归还配额失败",
			zap.Uint64("fileID", task.FileID),
			zap.Uint64("userID", task.UserID),
			zap.Uint64("size", task.Size),
			zap.Error(err))
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("DeleteWorker: Ack 失败", zap.Error(err))
		return
	}
	logger.Info("DeleteWorker: 分享删除完成",
		zap.Uint64("fileID", task.FileID),
		zap.Uint64("userID", task.UserID),
		zap.Uint64("size", task.Size))
}
