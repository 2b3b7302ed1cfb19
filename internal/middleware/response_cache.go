package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const responseCacheName = "response_cache"

// ResponseCacheMiddleware caches successful anonymous GET responses under
// response:{group}:{path}?{query}. Authenticated requests bypass the cache
// because editors see unpublished rows. Adds X-Cache: HIT/MISS.
func ResponseCacheMiddleware(group string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if _, authed := c.Get("user"); authed {
			c.Next()
			return
		}

		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		m := metrics.Get()
		cacheKey := responseCacheKey(group, c.Request.URL.Path, c.Request.URL.RawQuery)
		ctx := c.Request.Context()

		if cached, err := redisClient.Get(ctx, cacheKey); err == nil {
			m.CacheHitsTotal.WithLabelValues(responseCacheName).Inc()
			c.Header("X-Cache", "HIT")
			c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		} else if err != cache.Nil {
			logger.Log.Debug("Response cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		m.CacheMissesTotal.WithLabelValues(responseCacheName).Inc()

		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}
		if err := redisClient.SetEx(ctx, cacheKey, writer.body.String(), ttl); err != nil {
			logger.Log.Debug("Failed to write response to cache",
				zap.String("key", cacheKey),
				zap.Error(err),
			)
		}
	}
}

func responseCacheKey(group, path, query string) string {
	key := fmt.Sprintf("response:%s:%s", group, path)
	if query != "" {
		key += "?" + query
	}
	return key
}

// cachedResponseWriter intercepts response writes to capture the response body
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// InvalidateResponseCache drops every cached response in the given groups
func InvalidateResponseCache(ctx context.Context, groups ...string) {
	redisClient := cache.GetRedisClient()
	if redisClient == nil {
		return
	}
	for _, group := range groups {
		n, err := redisClient.DeletePattern(ctx, fmt.Sprintf("response:%s:*", group))
		if err != nil {
			logger.Log.Warn("Failed to invalidate response cache", zap.String("group", group), zap.Error(err))
			continue
		}
		if n > 0 {
			metrics.Get().CacheInvalidationsTotal.WithLabelValues(responseCacheName).Add(float64(n))
		}
	}
}
