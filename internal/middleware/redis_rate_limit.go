package middleware

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dalilsuez/backend/internal/cache"
	apperrors "github.com/dalilsuez/backend/internal/errors"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware creates a distributed rate limiter using Redis.
// Counters are shared across instances, so horizontally scaled deployments
// enforce one global limit per caller. When Redis was never configured the
// request passes through; the in-process limiter still applies downstream.
func RedisRateLimitMiddleware(surface string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		key := c.GetString("user_id")
		if key == "" {
			key = getClientIP(c.Request.RemoteAddr)
		}
		redisKey := fmt.Sprintf("rate_limit:%s:%s", surface, key)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		val, err := redisClient.GetInt(ctx, redisKey)
		if err != nil && err.Error() != "redis: nil" {
			// A broken limiter must not open the API up; reject instead
			logger.Log.Error("rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(503, gin.H{"error": apperrors.Internal("service temporarily unavailable")})
			return
		}

		if val >= int64(maxRequests) {
			ttl, ttlErr := redisClient.TTL(ctx, redisKey)
			retryAfter := int(window.Seconds())
			if ttlErr == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds()) + 1
			}

			metrics.Get().RateLimitExceededTotal.WithLabelValues(surface).Inc()
			logger.Log.Warn("distributed rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("surface", surface),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", val),
			)

			apiErr := apperrors.RateLimited(retryAfter)
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
			return
		}

		newVal, err := redisClient.IncrBy(ctx, redisKey, 1)
		if err != nil {
			logger.Log.Error("rate limit increment failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(503, gin.H{"error": apperrors.Internal("service temporarily unavailable")})
			return
		}

		// First request in this window starts the clock
		if newVal == 1 {
			if err := redisClient.Expire(ctx, redisKey, window); err != nil {
				logger.Log.Warn("failed to set rate limit expiration",
					logger.WithIP(c.ClientIP()),
					zap.Error(err),
				)
			}
		}

		c.Next()
	}
}

// getClientIP extracts the client IP from RemoteAddr
func getClientIP(remoteAddr string) string {
	if ip, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return ip
	}
	return remoteAddr
}
