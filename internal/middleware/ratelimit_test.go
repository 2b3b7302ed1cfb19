package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(limiter gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doRequest(router http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Name:   "test",
		Limit:  3,
		Window: time.Second,
	}))

	for i := 0; i < 3; i++ {
		w := doRequest(router, "", "")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := doRequest(router, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// one token refills every third of a second
	time.Sleep(400 * time.Millisecond)

	w = doRequest(router, "", "")
	assert.Equal(t, http.StatusOK, w.Code, "Request after refill should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(RateLimitConfig{
		Name:   "test",
		Limit:  2,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "X-Client-ID", "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "X-Client-ID", "client-a").Code)

	// client B has its own bucket
	assert.Equal(t, http.StatusOK, doRequest(router, "X-Client-ID", "client-b").Code)
}

func TestRedisRateLimitFallsBackToMemory(t *testing.T) {
	router := newLimitedRouter(RedisRateLimitMiddleware(RateLimitConfig{
		Name:   "fallback",
		Limit:  1,
		Window: time.Minute,
	}))

	assert.Equal(t, http.StatusOK, doRequest(router, "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "", "").Code)
}

func TestRateLimiterSweepDropsIdleBuckets(t *testing.T) {
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  RateLimitConfig{Limit: 2, Window: time.Second},
	}

	assert.True(t, rl.Allow("busy"))
	assert.True(t, rl.Allow("idle"))

	assert.Equal(t, 2, rl.Sweep(time.Now()), "buckets with spent tokens stay")
	assert.Equal(t, 0, rl.Sweep(time.Now().Add(5*time.Second)), "refilled buckets are dropped")
}

func TestTokenBucketRetryAfter(t *testing.T) {
	tb := NewTokenBucket(1, 0.5)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.GreaterOrEqual(t, tb.GetRetryAfter(), 1)
}
