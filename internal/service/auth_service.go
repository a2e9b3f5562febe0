package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/recapstack/decide-api/internal/config"
	"github.com/recapstack/decide-api/internal/domain/user"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/storage/memstorage"
	"go.uber.org/zap"
)

// Claims carried by admin access tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  user.Repository
	cfg    *config.AdminConfig
	logger *zap.Logger
}

func NewAuthService(users user.Repository, cfg *config.AdminConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		cfg:    cfg,
		logger: logger.Named("AuthService"),
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ierr.ErrUserNotFound) {
			return "", ierr.ErrInvalidCredentials
		}
		s.logger.Error("Failed to look up user", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	if !memstorage.CheckPassword(u.PasswordHash, password) {
		s.logger.Info("Password mismatch on login", zap.String("username", username))
		return "", ierr.ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Admin logged in", zap.String("username", u.Username))
	return signed, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ierr.ErrTokenInvalidClaims
	}

	return claims, nil
}
