package models

// DeleteFileTask 投递到删除队列的消息体
// Worker 先删对象存储，成功后再删记录并归还配额
type DeleteFileTask struct {
	FileID    uint64 `json:"file_id"`
	UserID    uint64 `json:"user_id"`
	Size      uint64 `json:"size"`
	OssBucket string `json:"oss_bucket"`
	OssKey    string `json:"oss_key"`
}
