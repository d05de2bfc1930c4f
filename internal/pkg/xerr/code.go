package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode    = 40000 // 无效的请求参数
	ValidationFailedCode = 40001 // 参数验证失败
	FileTooLargeCode     = 40003 // 文件过大
	FileNameInvalidCode  = 40004 // 文件名无效
	ExpiryInvalidCode    = 40005 // 过期时间无效
	QuotaExceededCode    = 40006 // 存储配额不足

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode       = 40100 // 通用未授权
	TokenInvalidCode       = 40101 // Token 无效或过期
	InvalidCredentialsCode = 40102 // 用户名或密码错误

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode              = 40300 // 通用无权限
	PermissionDeniedCode       = 40301 // 权限不足 (细分)
	ShareRevokedCode           = 40302 // 分享已被撤销
	SharePasswordRequiredCode  = 40303 // 取件需要密码
	SharePasswordIncorrectCode = 40304 // 取件密码不正确

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode      = 40400 // 通用资源未找到
	UserNotFoundCode  = 40401 // 用户不存在
	FileNotFoundCode  = 40402 // 文件不存在
	ShareNotFoundCode = 40403 // 分享密钥无效

	// --- 资源已失效系列 (410xx) ---
	ShareExpiredCode = 41000 // 分享已过期

	// --- 业务逻辑冲突系列 (409xx) ---
	UserAlreadyExistsCode  = 40900 // 用户名已存在
	EmailAlreadyExistsCode = 40901 // 邮箱已存在
	DuplicateKeyCode       = 40902 // 分享密钥哈希冲突（内部重试，不应外露）

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（如MinIO）
	MQErrorCode             = 50003 // 消息队列操作失败
	KeyCollisionCode        = 50004 // 密钥生成重试耗尽
	EmailErrorCode          = 50005 // 邮件发送失败
)
