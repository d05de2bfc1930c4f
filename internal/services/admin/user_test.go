package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaporshare/go-vaporshare/internal/models"
	"github.com/vaporshare/go-vaporshare/internal/pkg/utils"
	"github.com/vaporshare/go-vaporshare/internal/pkg/xerr"
)

func newUserFixture(t *testing.T) (*fakeUserRepo, *UserService, *models.User) {
	t.Helper()
	repo := newFakeUserRepo()
	hash, err := utils.HashPassword("oldpass123")
	require.NoError(t, err)
	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         models.RoleSender,
		TotalSpace:   100,
	}
	require.NoError(t, repo.CreateUser(user))
	return repo, NewUserService(repo), user
}

func TestChangePassword(t *testing.T) {
	repo, svc, user := newUserFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "oldpass123", "newpass456"))

	stored, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("newpass456", stored.PasswordHash))
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	_, svc, user := newUserFixture(t)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "newpass456")
	assert.ErrorIs(t, err, xerr.ErrInvalidCredentials)
}

func TestUpdateProfileEmail(t *testing.T) {
	repo, svc, user := newUserFixture(t)
	ctx := context.Background()

	email := "alice-new@example.com"
	updated, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	stored, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, email, stored.Email)
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	repo, svc, user := newUserFixture(t)

	require.NoError(t, repo.CreateUser(&models.User{
		Username: "bob",
		Email:    "bob@example.com",
		Role:     models.RoleReceiver,
	}))

	taken := "bob@example.com"
	_, err := svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileRequest{Email: &taken})
	assert.ErrorIs(t, err, xerr.ErrEmailAlreadyExists)

	stored, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestUpdateProfileNoChanges(t *testing.T) {
	_, svc, user := newUserFixture(t)

	// 不带任何字段和换绑为当前邮箱都是无操作的成功
	updated, err := svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", updated.Email)

	same := "alice@example.com"
	updated, err = svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileRequest{Email: &same})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", updated.Email)
}
