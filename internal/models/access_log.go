package models

import (
	"time"
)

// FileAccessLog 对应 file_access_logs 表
// 每次成功取件追加一条，只增不改，条数与 files.download_count 始终一致
type FileAccessLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID     uint64    `gorm:"not null;index" json:"file_id"`
	IP         string    `gorm:"type:varchar(45);not null" json:"ip"` // 兼容 IPv6 文本形式
	AccessedAt time.Time `gorm:"not null" json:"accessed_at"`
}

// TableName 指定 GORM 使用的表名
func (FileAccessLog) TableName() string {
	return "file_access_logs"
}
