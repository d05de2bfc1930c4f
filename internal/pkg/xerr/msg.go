package xerr

import "errors"

var (
	// 通用错误
	ErrSuccess        = errors.New("操作成功")
	ErrInternalServer = errors.New("服务器内部错误")

	// 客户端请求错误
	ErrInvalidParams    = errors.New("无效的请求参数")
	ErrValidationFailed = errors.New("参数验证失败")
	ErrFileTooLarge     = errors.New("上传文件过大，超出限制")
	ErrFileNameInvalid  = errors.New("文件名包含非法字符")
	ErrExpiryInvalid    = errors.New("过期时间无效，必须晚于当前时间")
	ErrQuotaExceeded    = errors.New("存储空间不足，无法上传")

	// 认证与授权错误
	ErrUnauthorized       = errors.New("用户未授权")
	ErrTokenInvalid       = errors.New("认证 Token 无效或已过期")
	ErrInvalidCredentials = errors.New("用户名或密码不正确")
	ErrUserAlreadyExists  = errors.New("该用户名已被注册")
	ErrEmailAlreadyExists = errors.New("邮箱已被注册")

	// 权限错误
	ErrForbidden              = errors.New("禁止访问")
	ErrPermissionDenied       = errors.New("您没有操作此资源的权限")
	ErrShareRevoked           = errors.New("分享已被撤销")
	ErrSharePasswordRequired  = errors.New("该分享需要取件密码")
	ErrSharePasswordIncorrect = errors.New("取件密码不正确")

	// 资源未找到/已失效错误
	ErrUserNotFound  = errors.New("用户不存在")
	ErrFileNotFound  = errors.New("文件不存在")
	ErrShareNotFound = errors.New("分享密钥无效或不存在")
	ErrShareExpired  = errors.New("分享已过期")

	// 内部冲突，在服务层内重试，不应到达调用方
	ErrDuplicateKey = errors.New("分享密钥哈希已存在")
	ErrKeyCollision = errors.New("分享密钥生成重试次数耗尽")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
	ErrEmailError    = errors.New("邮件发送失败")
)
