package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cloudbill/cloudbill/internal/config"
	goCache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements Cache using github.com/patrickmn/go-cache.
type InMemoryCache struct {
	cache      *goCache.Cache
	enabled    bool
	defaultTTL time.Duration
}

// NewInMemoryCache creates a new cache service from configuration.
func NewInMemoryCache(cfg *config.Configuration) Cache {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := cfg.Cache.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Hour
	}
	return &InMemoryCache{
		cache:      goCache.New(ttl, cleanup),
		enabled:    cfg.Cache.Enabled,
		defaultTTL: ttl,
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	if expiration <= 0 {
		expiration = c.defaultTTL
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
