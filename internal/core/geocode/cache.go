package geocode

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"routeplan/internal/platform/redis"
)

const cacheTTL = 24 * time.Hour

// RedisCache shares geocode results across processes through Redis.
type RedisCache struct {
	redis *redis.Service
}

func NewRedisCache(r *redis.Service) *RedisCache { return &RedisCache{redis: r} }

func (c *RedisCache) Get(ctx context.Context, query string) (Result, bool) {
	var res Result
	if err := c.redis.CacheGet(ctx, cacheKey(query), &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (c *RedisCache) Set(ctx context.Context, query string, res Result) {
	_ = c.redis.CacheSet(ctx, cacheKey(query), res, cacheTTL)
}

func cacheKey(query string) string { return "geocode:" + query }

// MemoryCache is the in-process fallback when Redis is not
// configured: an expirable LRU keyed by exact query text.
type MemoryCache struct {
	lru *lru.LRU[string, Result]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = cacheTTL
	}
	return &MemoryCache{lru: lru.NewLRU[string, Result](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, query string) (Result, bool) {
	return c.lru.Get(query)
}

func (c *MemoryCache) Set(_ context.Context, query string, res Result) {
	c.lru.Add(query, res)
}
