package utils

// ShareKeyBytes 分享密钥的随机字节数，256 位熵
const ShareKeyBytes = 32

// GenerateShareKey 生成一个新的分享密钥明文（hex 编码）
// 明文只在上传响应中返回一次，数据库只保存其哈希
func GenerateShareKey() (string, error) {
	return GenerateSecureToken(ShareKeyBytes)
}

// HashShareKey 计算分享密钥的 SHA-256 哈希（hex 编码），作为唯一索引字段
// 取件时对调用方提供的明文做同样的变换后查库
func HashShareKey(key string) string {
	return HashToken(key)
}
