package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recapstack/decide-api/internal/config"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/service"
	"github.com/recapstack/decide-api/internal/storage/memstorage"
)

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	cfg := &config.AdminConfig{
		Username:  "admin",
		Password:  "s3cret",
		JWTSecret: "test-signing-key",
		TokenTTL:  time.Hour,
	}
	users, err := memstorage.NewUserRepository(cfg.Username, cfg.Password)
	require.NoError(t, err)
	return service.NewAuthService(users, cfg, zap.NewNop())
}

func TestLogin_IssuesValidToken(t *testing.T) {
	svc := newAuthService(t)

	token, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "ghost", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, ierr.ErrInvalidCredentials)
		})
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}

func TestValidateToken_RejectsForeignSignature(t *testing.T) {
	issuer := newAuthService(t)
	token, err := issuer.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)

	other := service.NewAuthService(
		mustUserRepo(t), &config.AdminConfig{
			Username:  "admin",
			Password:  "s3cret",
			JWTSecret: "a-different-key",
			TokenTTL:  time.Hour,
		}, zap.NewNop())

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ierr.ErrInvalidToken)
}

func mustUserRepo(t *testing.T) *memstorage.UserRepository {
	t.Helper()
	users, err := memstorage.NewUserRepository("admin", "s3cret")
	require.NoError(t, err)
	return users
}
