package cache

import (
	"context"
	"time"
)

// Cache is an explicit TTL-keyed cache service. It is injected as a
// dependency; there is intentionally no package-level instance.
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the service default TTL applies
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// Cache key prefixes per entity type
const (
	PrefixSkuGroupMapping = "skugroupmapping:v1:"
	PrefixPricingList     = "pricinglist:v1:"
	PrefixProviderToken   = "providertoken:v1:"
)
