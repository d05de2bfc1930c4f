package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShareKey(t *testing.T) {
	key, err := GenerateShareKey()
	require.NoError(t, err)
	// 32 字节 hex 编码后 64 个字符
	assert.Len(t, key, ShareKeyBytes*2)

	// 连续生成不应重复
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		k, err := GenerateShareKey()
		require.NoError(t, err)
		assert.False(t, seen[k], "生成了重复的分享密钥")
		seen[k] = true
	}
}

func TestHashShareKey(t *testing.T) {
	key, err := GenerateShareKey()
	require.NoError(t, err)

	hash := HashShareKey(key)
	// SHA-256 hex 编码固定 64 个字符
	assert.Len(t, hash, 64)
	// 同一明文哈希结果稳定
	assert.Equal(t, hash, HashShareKey(key))
	// 不同明文哈希不同
	other, err := GenerateShareKey()
	require.NoError(t, err)
	assert.NotEqual(t, hash, HashShareKey(other))
	// 哈希不泄露明文
	assert.NotEqual(t, key, hash)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken(""), 64)
}
