package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthHandler pings both backing stores. Either one failing makes the
// whole service unhealthy: verification cannot run without postgres, and
// the worker cannot run without redis.
type HealthHandler struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *zap.Logger
}

func NewHealthHandler(db *pgxpool.Pool, redisClient *redis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		logger: logger.Named("HealthHandler"),
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	deps := gin.H{}
	healthy := true

	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check: postgres ping failed", zap.Error(err))
		deps["database"] = "error"
		healthy = false
	} else {
		deps["database"] = "ok"
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		h.logger.Error("Health check: redis ping failed", zap.Error(err))
		deps["redis"] = "error"
		healthy = false
	} else {
		deps["redis"] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "dependencies": deps})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": deps})
}
