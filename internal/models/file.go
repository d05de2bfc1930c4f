package models

import (
	"time"
)

// File 对应 files 表，一条记录代表一次文件分享
type File struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64  `gorm:"not null;index:idx_owner_created,priority:1" json:"user_id"` // 上传者ID，创建后不可变
	FileName    string  `gorm:"type:varchar(255);not null" json:"filename"`
	Description string  `gorm:"type:varchar(1024);not null;default:''" json:"description"`
	Category    string  `gorm:"type:varchar(64);not null" json:"category"`
	KeyHash     string  `gorm:"type:char(64);not null;uniqueIndex" json:"-"` // 分享密钥的 SHA-256 哈希，明文从不落库
	Password    *string `gorm:"type:varchar(255)" json:"-"`                  // 可选：访问密码的 bcrypt 哈希

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"` // 绝对过期时间
	IsRevoked bool      `gorm:"not null;default:0" json:"is_revoked"`

	// 对象存储坐标，创建后不可变
	Size      uint64 `gorm:"type:bigint unsigned;not null;default:0" json:"size"`
	OssBucket string `gorm:"type:varchar(64);not null" json:"-"`
	OssKey    string `gorm:"type:varchar(255);not null" json:"-"`
	FileURL   string `gorm:"type:varchar(1024);not null;default:''" json:"-"`

	DownloadCount uint64 `gorm:"type:bigint unsigned;not null;default:0" json:"download_count"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_owner_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 定义 GORM 关联，方便预加载
	User       *User           `gorm:"foreignKey:UserID" json:"-"`
	AccessLogs []FileAccessLog `gorm:"foreignKey:FileID" json:"access_logs,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (File) TableName() string {
	return "files"
}

// IsAccessible 判断记录在给定时刻是否可访问：未过期且未被撤销
func (f *File) IsAccessible(now time.Time) bool {
	return now.Before(f.ExpiresAt) && !f.IsRevoked
}

// HasPassword 判断记录是否设置了访问密码
func (f *File) HasPassword() bool {
	return f.Password != nil && *f.Password != ""
}
