package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/providers"
)

// DefaultScheduleTTL is how long a parsed schedule stays valid
const DefaultScheduleTTL = 5 * time.Minute

// MemoryScheduleCache is a size-bounded, TTL-expiring in-process
// ScheduleCache. Expiry is judged against the injected clock.
type MemoryScheduleCache struct {
	entries *lru.Cache[string, entities.CacheEntry]
	ttl     time.Duration
	clock   providers.Clock
}

// NewMemoryScheduleCache creates a cache holding at most size entries
func NewMemoryScheduleCache(size int, ttl time.Duration, clock providers.Clock) (*MemoryScheduleCache, error) {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	if clock == nil {
		clock = providers.SystemClock{}
	}
	entries, err := lru.New[string, entities.CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule cache: %w", err)
	}
	return &MemoryScheduleCache{entries: entries, ttl: ttl, clock: clock}, nil
}

// Get returns a live entry; expired entries are evicted and reported absent
func (c *MemoryScheduleCache) Get(restaurantID string) (entities.CacheEntry, bool) {
	entry, ok := c.entries.Get(restaurantID)
	if !ok {
		return entities.CacheEntry{}, false
	}
	if entry.Expired(c.clock.Now()) {
		c.entries.Remove(restaurantID)
		return entities.CacheEntry{}, false
	}
	return entry, true
}

// Set stores entry, stamping its expiry from the cache TTL when unset
func (c *MemoryScheduleCache) Set(restaurantID string, entry entities.CacheEntry) {
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = c.clock.Now().Add(c.ttl)
	}
	c.entries.Add(restaurantID, entry)
}

// Delete drops the entry for restaurantID
func (c *MemoryScheduleCache) Delete(restaurantID string) {
	c.entries.Remove(restaurantID)
}

// Len returns the number of entries, including not-yet-evicted expired ones
func (c *MemoryScheduleCache) Len() int {
	return c.entries.Len()
}

// TTL returns the configured time-to-live
func (c *MemoryScheduleCache) TTL() time.Duration {
	return c.ttl
}
