package middleware

import (
	"strconv"
	"time"

	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/dalilsuez/backend/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for one rate limited surface
type RateLimitConfig struct {
	// Surface names the endpoint group in logs and metrics
	Surface string
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
}

// DefaultRateLimitConfig returns sensible defaults for general traffic
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Surface: "default",
		Limit:   100,
		Window:  time.Minute,
	}
}

// ReviewRateLimitConfig returns the strict limit for review submission
func ReviewRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Surface: "reviews",
		Limit:   5,
		Window:  time.Hour,
	}
}

// TelemetryRateLimitConfig returns limits for the event ingestion endpoints
func TelemetryRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Surface: "telemetry",
		Limit:   300,
		Window:  time.Minute,
	}
}

// RateLimitMiddleware enforces a fixed window limit per caller. The key is
// the resolved user id when auth ran first, the client IP otherwise, so the
// same account can't dodge the limit by rotating addresses.
func RateLimitMiddleware(limiter *ratelimit.Limiter, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}
		key = config.Surface + ":" + key

		decision := limiter.Allow(key, config.Limit, config.Window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := limiter.RetryAfter(key)
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			metrics.Get().RateLimitExceededTotal.WithLabelValues(config.Surface).Inc()
			logger.Log.Warn("rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("surface", config.Surface),
				zap.Int("limit", config.Limit),
			)

			apiErr := apperrors.RateLimited(retryAfter)
			c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
			return
		}

		c.Next()
	}
}
