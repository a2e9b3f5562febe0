package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/service"
	"go.uber.org/zap"
)

const adminClaimsKey = "adminClaims"

// AuthMiddleware guards the admin surface with the bearer token issued by
// the login endpoint.
func AuthMiddleware(auth *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			log.Debug("Rejected request without usable bearer token", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: authorization header required", ierr.ErrUnauthorized)
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthorized)
	}
	return token, nil
}

// GetAdminClaims returns the claims stored by AuthMiddleware, or nil on an
// unauthenticated request.
func GetAdminClaims(c *gin.Context) *service.Claims {
	value, ok := c.Get(adminClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}
