package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives purchase pings from Gumroad. The payload arrives
// form-encoded, not JSON.
type WebhookHandler struct {
	licenseService *service.LicenseService
	productID      string
	logger         *zap.Logger
}

func NewWebhookHandler(licenseService *service.LicenseService, productID string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		licenseService: licenseService,
		productID:      productID,
		logger:         logger.Named("WebhookHandler"),
	}
}

func (h *WebhookHandler) GumroadPing(c *gin.Context) {
	licenseKey := c.PostForm("license_key")
	email := c.PostForm("email")
	permalink := c.PostForm("permalink")

	if licenseKey == "" {
		h.logger.Warn("Webhook ping without license key")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No key provided"})
		return
	}

	// When a product id is configured, drop pings for other products.
	if h.productID != "" && permalink != "" && permalink != h.productID {
		h.logger.Warn("Webhook ping for unknown product", zap.String("permalink", permalink))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown product"})
		return
	}

	if err := h.licenseService.RecordPurchase(c.Request.Context(), licenseKey, email); err != nil {
		h.logger.Error("Failed to record purchase from webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
