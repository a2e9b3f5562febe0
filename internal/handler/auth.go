package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger.Named("AuthHandler"),
	}
}

// Login exchanges the admin credentials for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ierr.ErrInvalidCredentials) {
			h.logger.Info("Rejected login attempt", zap.String("username", req.Username))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		h.logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{AccessToken: token})
}
