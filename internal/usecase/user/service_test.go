package user

import (
	"context"
	"testing"

	"lxcloud/internal/config"
	"lxcloud/internal/infrastructure/database/memory"
	"lxcloud/internal/logger"
	appErrors "lxcloud/pkg/errors"
	"lxcloud/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitForTest()
	m.Run()
}

func newTestService() *Service {
	return NewService(memory.NewUserRepository(), &config.JWTConfig{
		Secret:      "test-secret",
		ExpiryHours: 1,
	})
}

func TestFirstUserBecomesAdmin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, &RegisterRequest{
		Username: "admin", Email: "admin@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)

	second, err := svc.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.False(t, second.IsAdmin)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, appErrors.ErrUserAlreadyExists)
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := utils.ValidateToken(resp.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	// Unknown usernames fail identically.
	_, err = svc.Login(ctx, &LoginRequest{Username: "bob", Password: "secret123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "abc",
	})
	assert.Error(t, err)
}
