// Package cache stores rendered heatmap artifacts and fetched point sources.
//
// Backends:
//   - [FileCache]: sharded JSON entry files, for the CLI
//   - [RedisCache]: shared storage for multi-instance servers
//   - [MemoryCache]: in-process map, for a single server or tests
//   - [NullCache]: stores nothing, used when caching is disabled
//
// Keys come from a [Keyer], which hashes every input that affects the cached
// bytes. A render key covers the point set and every render parameter, so a
// cache hit is byte-identical to a fresh render.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	// TTLArtifact is how long encoded renders (PNG, KML) are kept.
	TTLArtifact = 7 * 24 * time.Hour
	// TTLSource is how long downloaded point sources are kept.
	TTLSource = time.Hour
	// TTLRecord is how long server render records are kept.
	TTLRecord = 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) error
}
