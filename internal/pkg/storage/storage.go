package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/vaporshare/go-vaporshare/internal/config"
)

// StorageService 定义了通用的文件存储操作接口
type StorageService interface {
	// 上传文件到指定存储桶，返回存储对象的信息或错误
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error)
	// 从指定存储桶下载文件，返回一个读取器和对象信息
	GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error)
	// 从指定存储桶删除文件
	RemoveObject(ctx context.Context, bucketName, objectName string) error
	// 检查存储桶是否存在
	IsBucketExist(ctx context.Context, bucketName string) (bool, error)
	// 创建存储桶
	MakeBucket(ctx context.Context, bucketName string) error
	// 获取对象的公开访问URL（如果支持）
	GetObjectURL(bucketName, objectName string) string
	// 为下载生成限时的预签名URL
	PresignedGetURL(ctx context.Context, bucketName, objectName, fileName string, expiry time.Duration) (string, error)
	// IsNotFound 判断错误是否为"对象不存在"
	// 清扫/删除流程对不存在的对象按删除成功处理
	IsNotFound(err error) bool
}

// PutObjectResult 上传结果
type PutObjectResult struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string // 对象哈希值
}

// GetObjectResult 下载结果
type GetObjectResult struct {
	Reader   io.ReadCloser // 文件内容读取器，需要在使用后关闭
	Size     int64
	MimeType string
}

// ActiveBucket 返回当前存储类型对应的存储桶名
func ActiveBucket(cfg *config.Config) string {
	if cfg.Storage.Type == "aliyun_oss" {
		return cfg.AliyunOSS.BucketName
	}
	return cfg.MinIO.BucketName
}

// NewStorageService 根据配置选择对象存储实现
func NewStorageService(cfg *config.Config) (StorageService, error) {
	switch cfg.Storage.Type {
	case "minio":
		return NewMinIOStorageService(&cfg.MinIO)
	case "aliyun_oss":
		return NewAliyunOSSStorageService(&cfg.AliyunOSS)
	default:
		return nil, errors.New("invalid storageType")
	}
}
