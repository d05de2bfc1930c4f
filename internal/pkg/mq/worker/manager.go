package worker

import (
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"github.com/vaporshare/go-vaporshare/internal/pkg/mq"
	"github.com/vaporshare/go-vaporshare/internal/pkg/storage"
	"github.com/vaporshare/go-vaporshare/internal/repositories"
	"github.com/vaporshare/go-vaporshare/internal/services/quota"
)

// StartAllWorkers 启动所有后台消费者
func StartAllWorkers(
	mqClient *mq.RabbitMQClient,
	fileRepo repositories.FileRepository,
	ledger quota.Ledger,
	ss storage.StorageService,
) error {
	deleteWorker := NewDeleteWorker(mqClient, fileRepo, ledger, ss)
	if err := deleteWorker.Start(); err != nil {
		return err
	}
	logger.Info("所有 MQ worker 已启动")
	return nil
}
