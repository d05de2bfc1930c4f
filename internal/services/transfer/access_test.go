package transfer

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
)

type shareOpts struct {
	password  string
	expiresAt time.Time
	revoked   bool
}

// seedShare 直接向仓库写入一条分享记录，返回分享密钥明文
func seedShare(t *testing.T, repo *fakeFileRepo, opts shareOpts) (string, *models.File) {
	t.Helper()

	key, err := utils.GenerateShareKey()
	require.NoError(t, err)

	expiresAt := opts.expiresAt
	if expiresAt.IsZero() {
		expiresAt = testTime.Add(24 * time.Hour)
	}

	file := &models.File{
		UserID:    1,
		FileName:  "report.pdf",
		Category:  "document",
		KeyHash:   utils.HashShareKey(key),
		ExpiresAt: expiresAt,
		IsRevoked: opts.revoked,
		Size:      16,
		OssBucket: "vaporshare",
		OssKey:    "shares/1/report.pdf",
		User:      &models.User{Username: "alice"},
	}
	if opts.password != "" {
		hashed, err := utils.HashPassword(opts.password)
		require.NoError(t, err)
		file.Password = &hashed
	}
	require.NoError(t, repo.Create(file))
	return key, file
}

func newAccessFixture() (*fakeFileRepo, *fakeStorage, AccessService) {
	fileRepo := newFakeFileRepo()
	store := newFakeStorage()
	svc := NewAccessService(fileRepo, store, testConfig(), testClock)
	return fileRepo, store, svc
}

func TestResolveUnknownKey(t *testing.T) {
	_, _, svc := newAccessFixture()

	file, err := svc.Resolve(context.Background(), "no-such-key", nil, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
	assert.Nil(t, file)
}

func TestResolveSuccess(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	key, seeded := seedShare(t, fileRepo, shareOpts{})

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, seeded.ID, file.ID)

	// 审计日志和下载计数一起落地
	assert.Equal(t, 1, fileRepo.accessLogCount(seeded.ID))
	assert.Equal(t, uint64(1), file.DownloadCount)

	// 再次取件，计数累加
	file, err = svc.Resolve(context.Background(), key, nil, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, 2, fileRepo.accessLogCount(seeded.ID))
	assert.Equal(t, uint64(2), file.DownloadCount)
}

func TestResolveExpired(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	// 过期且带密码，过期检查优先于密码检查
	key, seeded := seedShare(t, fileRepo, shareOpts{
		password:  "secret",
		expiresAt: testTime.Add(-time.Minute),
	})

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrShareExpired)
	assert.Nil(t, file)
	// 拒绝的访问不记审计
	assert.Equal(t, 0, fileRepo.accessLogCount(seeded.ID))
}

func TestResolveExactExpiryMoment(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	// expires_at 恰好等于当前时刻视为已过期
	key, _ := seedShare(t, fileRepo, shareOpts{expiresAt: testTime})

	_, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrShareExpired)
}

func TestResolveRevoked(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	// 已撤销且带密码，撤销检查优先，不泄露需要密码的事实
	key, seeded := seedShare(t, fileRepo, shareOpts{password: "secret", revoked: true})

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrShareRevoked)
	assert.Nil(t, file)
	assert.Equal(t, 0, fileRepo.accessLogCount(seeded.ID))
}

func TestResolvePasswordRequired(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	key, seeded := seedShare(t, fileRepo, shareOpts{password: "secret"})

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrSharePasswordRequired)

	// 返回脱敏的元信息：有文件名，无存储坐标和哈希
	require.NotNil(t, file)
	assert.Equal(t, seeded.FileName, file.FileName)
	assert.Empty(t, file.KeyHash)
	assert.Empty(t, file.OssBucket)
	assert.Empty(t, file.OssKey)
	assert.Nil(t, file.Password)

	// 未通过密码门，不记审计
	assert.Equal(t, 0, fileRepo.accessLogCount(seeded.ID))
}

func TestResolvePasswordIncorrect(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	key, seeded := seedShare(t, fileRepo, shareOpts{password: "secret"})

	wrong := "wrong"
	file, err := svc.Resolve(context.Background(), key, &wrong, "10.0.0.1")
	assert.ErrorIs(t, err, xerr.ErrSharePasswordIncorrect)
	assert.Nil(t, file)
	assert.Equal(t, 0, fileRepo.accessLogCount(seeded.ID))
}

func TestResolvePasswordCorrect(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	key, seeded := seedShare(t, fileRepo, shareOpts{password: "secret"})

	correct := "secret"
	file, err := svc.Resolve(context.Background(), key, &correct, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, file.ID)
	assert.Equal(t, 1, fileRepo.accessLogCount(seeded.ID))
}

func TestOpenContent(t *testing.T) {
	fileRepo, store, svc := newAccessFixture()
	key, _ := seedShare(t, fileRepo, shareOpts{})

	data := []byte("pdf bytes")
	_, err := store.PutObject(context.Background(), "vaporshare", "shares/1/report.pdf",
		bytes.NewReader(data), int64(len(data)), "application/pdf")
	require.NoError(t, err)

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	require.NoError(t, err)

	content, err := svc.OpenContent(context.Background(), file)
	require.NoError(t, err)
	defer content.Reader.Close()

	got, err := io.ReadAll(content.Reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPresignedURL(t *testing.T) {
	fileRepo, _, svc := newAccessFixture()
	key, _ := seedShare(t, fileRepo, shareOpts{})

	file, err := svc.Resolve(context.Background(), key, nil, "10.0.0.1")
	require.NoError(t, err)

	url, err := svc.PresignedURL(context.Background(), file)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}
