package providers

import (
	"context"
	"errors"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
)

// ErrCacheMiss is returned by CacheProvider.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines byte-level operations on a shared remote cache
type CacheProvider interface {
	// Get retrieves a value, returning ErrCacheMiss when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error
}

// ScheduleCache memoizes parsed hours per restaurant. Implementations must
// be safe for concurrent use; Set overwrites unconditionally.
type ScheduleCache interface {
	Get(restaurantID string) (entities.CacheEntry, bool)
	Set(restaurantID string, entry entities.CacheEntry)
	Delete(restaurantID string)
}

// Clock supplies the current time to TTL bookkeeping
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }
