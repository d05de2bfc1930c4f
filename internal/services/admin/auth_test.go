package admin

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaporshare/go-vaporshare/internal/config"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/cache"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
	"gorm.io/gorm"
)

// ---- 内存版 Cache，序列化语义与 RedisCache 保持一致 ----

type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, target any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, target)
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

// ---- 内存版 UserRepository ----

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[uint64]*models.User)}
}

func (r *fakeUserRepo) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByID(id uint64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(userID uint64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return xerr.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) UpdateEmail(userID uint64, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if id != userID && u.Email == email {
			return xerr.ErrEmailAlreadyExists
		}
	}
	u, ok := r.users[userID]
	if !ok {
		return xerr.ErrUserNotFound
	}
	u.Email = email
	return nil
}

func (r *fakeUserRepo) ReserveSpace(userID uint64, bytes uint64) error { return nil }

func (r *fakeUserRepo) ReleaseSpace(userID uint64, bytes uint64) error { return nil }

// ---- 测试 ----

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.Issuer = "go-vaporshare"
	cfg.JWT.ExpiresIn = time.Hour
	cfg.JWT.RefreshExpiresIn = 7 * 24 * time.Hour
	cfg.Quota.DefaultTotalSpace = 100 * 1024 * 1024
	cfg.Server.BaseURL = "http://localhost:8080"
	return cfg
}

func newAuthFixture() (*fakeUserRepo, *fakeCache, *AuthService) {
	userRepo := newFakeUserRepo()
	c := newFakeCache()
	svc := NewAuthService(userRepo, c, nil, testConfig())
	return userRepo, c, svc
}

func TestRegister(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleSender, user.Role)
	// 新用户拿到默认配额，密码以哈希存储
	assert.Equal(t, uint64(100*1024*1024), user.TotalSpace)
	assert.Equal(t, uint64(0), user.UsedSpace)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("password123", user.PasswordHash))
}

func TestRegisterDuplicates(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "password456", "other@example.com", models.RoleReceiver)
	assert.ErrorIs(t, err, xerr.ErrUserAlreadyExists)

	_, err = svc.Register(ctx, "alice2", "password456", "alice@example.com", models.RoleReceiver)
	assert.ErrorIs(t, err, xerr.ErrEmailAlreadyExists)
}

func TestRegisterInvalidRole(t *testing.T) {
	_, _, svc := newAuthFixture()

	_, err := svc.Register(context.Background(), "alice", "password123", "alice@example.com", "admin")
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	// access token 中携带身份信息
	claims, err := utils.ParseToken(pair.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleSender, claims.Role)

	// 邮箱也能登录
	_, err = svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
}

func TestRefreshTokenRotation(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	// token 的签发时间粒度是秒，等一秒保证新 token 和旧的不同
	time.Sleep(1100 * time.Millisecond)

	newPair, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// 旧的 refresh token 已轮换作废
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, xerr.ErrTokenInvalid)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	_, _, svc := newAuthFixture()
	ctx := context.Background()
	user, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, xerr.ErrTokenInvalid)
}

func TestResetPassword(t *testing.T) {
	userRepo, c, svc := newAuthFixture()
	ctx := context.Background()
	user, err := svc.Register(ctx, "alice", "password123", "alice@example.com", models.RoleSender)
	require.NoError(t, err)

	// 模拟 ForgotPassword 写入的重置 token（绕过邮件发送）
	token, err := utils.GenerateSecureToken(32)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, passwordResetPrefix+utils.HashToken(token), user.ID, passwordResetTTL))

	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword"))

	stored, err := userRepo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("newpassword", stored.PasswordHash))

	// 重置 token 一次性使用
	err = svc.ResetPassword(ctx, token, "again")
	assert.ErrorIs(t, err, xerr.ErrTokenInvalid)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	_, _, svc := newAuthFixture()

	err := svc.ResetPassword(context.Background(), "bogus-token", "newpassword")
	assert.ErrorIs(t, err, xerr.ErrTokenInvalid)
}
