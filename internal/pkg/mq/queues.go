package mq

// 队列名称集中定义，发布方和消费方共用
const (
	// FileDeleteQueue 文件异步删除任务队列
	FileDeleteQueue = "file_delete_queue"
)
