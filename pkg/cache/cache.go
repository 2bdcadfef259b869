// Package cache stores computed diagrams and rendered artifacts.
//
// The layout core is pure, so a run is fully determined by its snapshot
// and options. [Keyer] turns those into stable keys; a [Cache] backend
// stores the serialized result. Three backends exist:
//
//   - [FileCache]: one JSON file per entry, for CLI use
//   - [RedisCache]: shared cache for several server instances
//   - [NullCache]: caching disabled
//
// Backends never return an error for a plain miss; Get reports it through
// its boolean result.
package cache

import (
	"context"
	"time"
)

// Default time-to-live per entry type.
const (
	TTLDiagram  = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
