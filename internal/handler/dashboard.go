package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler serves the admin overview numbers.
type DashboardHandler struct {
	licenses *service.LicenseService
	logger   *zap.Logger
}

func NewDashboardHandler(licenses *service.LicenseService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		licenses: licenses,
		logger:   logger.Named("DashboardHandler"),
	}
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.licenses.GetDashboardSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
