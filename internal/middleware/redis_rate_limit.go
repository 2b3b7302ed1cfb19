package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/errors"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by every
// instance through Redis. When Redis is not configured it falls back to the
// in-memory token bucket.
func RedisRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	fallback := NewMemoryRateLimiter(config)

	return func(c *gin.Context) {
		key := config.key(c)

		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			if !fallback.Allow(key) {
				rejectRateLimited(c, config, fallback.GetRetryAfter(key))
				return
			}
			c.Next()
			return
		}

		window := time.Now().Unix() / int64(config.Window.Seconds())
		redisKey := fmt.Sprintf("rate_limit:%s:%s:%d", config.Name, key, window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := redisClient.IncrWithExpiry(ctx, redisKey, config.Window)
		if err != nil {
			// A broken limiter must not open the API up
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.String("limiter", config.Name),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}

		if count > int64(config.Limit) {
			retryAfter := 1
			if ttl, err := redisClient.TTL(ctx, redisKey); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds()) + 1
			}
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("limiter", config.Name),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			rejectRateLimited(c, config, retryAfter)
			return
		}

		remaining := int64(config.Limit) - count
		c.Header("X-RateLimit-Limit", fmt.Sprint(config.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprint(remaining))
		c.Next()
	}
}
