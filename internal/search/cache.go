package search

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contentanonymity/backend/internal/cache"
	"github.com/contentanonymity/backend/internal/logger"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "search:"

// DefaultCacheTTL is how long a result page is reused
const DefaultCacheTTL = 5 * time.Minute

// CachedSearcher wraps a Searcher with Redis caching. Without Redis it
// passes every query through.
type CachedSearcher struct {
	next Searcher
	ttl  time.Duration
}

// NewCachedSearcher creates a caching wrapper around next
func NewCachedSearcher(next Searcher, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSearcher{next: next, ttl: ttl}
}

// cacheKey generates a cache key for the query
func cacheKey(q Query) string {
	data, _ := json.Marshal(q)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash)
}

// Search returns a cached page when one exists, otherwise queries next
func (c *CachedSearcher) Search(ctx context.Context, q Query) (*Result, error) {
	q.normalize()
	rc := cache.GetRedisClient()
	if rc == nil {
		return c.next.Search(ctx, q)
	}

	key := cacheKey(q)
	if cached, err := rc.Get(ctx, key); err == nil {
		var result Result
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			result.Cached = true
			return &result, nil
		}
	}

	result, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := rc.SetEx(ctx, key, data, c.ttl); err != nil {
			logger.Log.Debug("Failed to cache search result", zap.Error(err))
		}
	}
	return result, nil
}

// InvalidateCache drops every cached result page
func InvalidateCache(ctx context.Context) error {
	rc := cache.GetRedisClient()
	if rc == nil {
		return nil
	}
	_, err := rc.DeletePattern(ctx, cacheKeyPrefix+"*")
	return err
}
