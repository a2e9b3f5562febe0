package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recapstack/decide-api/internal/youtube"
	"go.uber.org/zap"
)

type TutorialsHandler struct {
	client *youtube.Client
	logger *zap.Logger
}

func NewTutorialsHandler(client *youtube.Client, logger *zap.Logger) *TutorialsHandler {
	return &TutorialsHandler{
		client: client,
		logger: logger.Named("TutorialsHandler"),
	}
}

func (h *TutorialsHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	if !h.client.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing API Key"})
		return
	}

	payload, err := h.client.Search(c.Request.Context(), query, c.Query("duration"), c.Query("pageToken"))
	if err != nil {
		h.logger.Error("Tutorial search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch videos"})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}
