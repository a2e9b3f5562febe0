// Package gumroad talks to the Gumroad license-verification endpoint. The
// service treats it as a best-effort first pass: any transport failure,
// timeout, or malformed response counts as "not verified" and verification
// falls back to the local store.
package gumroad

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/recapstack/decide-api/internal/config"
	"github.com/recapstack/decide-api/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "gumroad:verified:"

type Client struct {
	httpClient *http.Client
	cache      *redis.Client
	productID  string
	verifyURL  string
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewClient builds the adapter. cache may be nil; it only short-circuits
// repeat lookups for codes Gumroad already confirmed, negatives are never
// cached.
func NewClient(cfg *config.GumroadConfig, cache *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		productID:  cfg.ProductID,
		verifyURL:  cfg.VerifyURL,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger.Named("GumroadClient"),
	}
}

// Configured reports whether a product id is set. Without one the external
// pass is skipped entirely.
func (c *Client) Configured() bool {
	return c.productID != ""
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CheckPurchase asks Gumroad whether code belongs to a completed purchase of
// the configured product. It never returns an error to the caller: every
// failure mode degrades to false so the engine can fall through to the store.
func (c *Client) CheckPurchase(ctx context.Context, code string) bool {
	if !c.Configured() {
		return false
	}

	if c.cachedVerdict(ctx, code) {
		metrics.AuthorityChecks.WithLabelValues("cached").Inc()
		return true
	}

	form := url.Values{}
	form.Set("product_id", c.productID)
	form.Set("license_key", code)
	// Re-verifications must not burn the buyer's use counter.
	form.Set("increment_uses_count", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Error("Failed to build gumroad request", zap.Error(err))
		metrics.AuthorityChecks.WithLabelValues("error").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Gumroad verification call failed", zap.Error(err))
		metrics.AuthorityChecks.WithLabelValues("error").Inc()
		return false
	}
	defer resp.Body.Close()

	// Gumroad answers 404 for unknown keys; treat anything unexpected the
	// same way and let the store decide.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("Failed to read gumroad response", zap.Error(err))
		metrics.AuthorityChecks.WithLabelValues("error").Inc()
		return false
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("Malformed gumroad response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		metrics.AuthorityChecks.WithLabelValues("error").Inc()
		return false
	}

	if !result.Success {
		c.logger.Debug("Gumroad did not recognize the code",
			zap.Int("status", resp.StatusCode),
			zap.String("message", result.Message),
		)
		metrics.AuthorityChecks.WithLabelValues("invalid").Inc()
		return false
	}

	c.logger.Info("Code verified via Gumroad")
	metrics.AuthorityChecks.WithLabelValues("valid").Inc()
	c.storeVerdict(ctx, code)
	return true
}

func (c *Client) cachedVerdict(ctx context.Context, code string) bool {
	if c.cache == nil {
		return false
	}

	val, err := c.cache.Get(ctx, cacheKeyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Gumroad verdict cache read failed", zap.Error(err))
		}
		return false
	}
	return val == "1"
}

func (c *Client) storeVerdict(ctx context.Context, code string) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}

	if err := c.cache.Set(ctx, cacheKeyPrefix+code, "1", c.cacheTTL).Err(); err != nil {
		c.logger.Warn("Gumroad verdict cache write failed", zap.Error(err))
	}
}
