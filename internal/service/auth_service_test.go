package service

import (
	"context"
	"english_virtual_lab/internal/config"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough!"

func newTestAuthService() (*AuthService, *fakeUserStore) {
	users := newFakeUserStore()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour}}
	return NewAuthService(users, cfg), users
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestAuthService()

	user, token, err := svc.Register(ctx, " Learner@Example.com ", "secret1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "learner@example.com", user.Email)
	assert.NotEqual(t, "secret1", users.users[user.ID].Password)
	assert.Equal(t, "Ana", users.profiles[user.ID].FullName)

	claims, err := util.ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, token, err = svc.Login(ctx, "learner@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "learner@example.com", "wrong-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	_, _, err := svc.Register(ctx, "a@example.com", "12345", "")
	assert.ErrorIs(t, err, util.ErrPasswordTooShort)

	_, _, err = svc.Register(ctx, "a@example.com", "123456", "")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "A@example.com", "123456", "")
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestAuthService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()
	user, _, err := svc.Register(ctx, "me@example.com", "123456", "")
	require.NoError(t, err)

	got, err := svc.CurrentUser(ctx, model.NewViewer(user.ID, user.Email))
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)

	_, err = svc.CurrentUser(ctx, model.NewViewer("missing", ""))
	assert.ErrorIs(t, err, util.ErrUserNotFound)
	_, err = svc.CurrentUser(ctx, model.Anonymous)
	assert.ErrorIs(t, err, util.ErrUnauthorized)
}
