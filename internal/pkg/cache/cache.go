package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中,key不存在
var ErrCacheMiss = errors.New("缓存未命中,key不存在")

// Cache 定义了通用的键值缓存接口
// 当前用于保存 refresh token 和密码重置 token
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, target any) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}
