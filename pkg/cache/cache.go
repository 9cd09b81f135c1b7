// Package cache provides small key/value caches for Enrichr metadata.
//
// The library catalog changes rarely, so it is cached between runs. Three
// backends implement [Cache]:
//
//   - [FileCache]: JSON entry files under ~/.cache/goenrichr (CLI default)
//   - [RedisCache]: a shared Redis instance, useful when several machines run
//     analyses against the same server
//   - [NullCache]: disables caching (--no-cache)
//
// Values are opaque bytes; callers marshal their own data. Keys should be
// built with the helpers in this package so backends share a key space.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value for key. A miss or an expired entry returns
	// (nil, false, nil); errors are reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLCatalog is the default lifetime of a cached library catalog.
const TTLCatalog = 24 * time.Hour
