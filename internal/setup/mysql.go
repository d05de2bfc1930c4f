package setup

import (
	"fmt"

	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 建立数据库连接并自动迁移表结构
// TranslateError 让驱动层的唯一键冲突翻译为 gorm.ErrDuplicatedKey，
// 分享密钥哈希的冲突检测依赖这一配置
func InitMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FileAccessLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate tables: %w", err)
	}

	logger.Info("MySQL connected and migrated")
	return db, nil
}
