package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/mailer"
	"go.uber.org/zap"
)

type ContactHandler struct {
	mailer *mailer.ResendMailer
	logger *zap.Logger
}

func NewContactHandler(m *mailer.ResendMailer, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		mailer: m,
		logger: logger.Named("ContactHandler"),
	}
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req dto.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind contact request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: "Email, type and message are required"})
		return
	}

	if err := h.mailer.SendContact(c.Request.Context(), req.Email, req.Type, req.Message); err != nil {
		h.logger.Error("Failed to relay contact message", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.APIErrorResponse{Message: "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
