package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	scheduleKeyPrefix = "schedule:"
	remoteCallTimeout = 50 * time.Millisecond
)

// TieredScheduleCache fronts a shared remote cache with the in-process one.
// Remote calls go through a circuit breaker so an unhealthy Redis degrades
// to memory-only instead of adding latency to every lookup.
type TieredScheduleCache struct {
	local   *MemoryScheduleCache
	remote  providers.CacheProvider
	breaker *gobreaker.CircuitBreaker
	clock   providers.Clock
	logger  zerolog.Logger
}

// NewTieredScheduleCache creates a two-level schedule cache
func NewTieredScheduleCache(local *MemoryScheduleCache, remote providers.CacheProvider) *TieredScheduleCache {
	logger := log.With().Str("component", "tiered_schedule_cache").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "schedule-cache-redis",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, providers.ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Schedule cache circuit breaker changed state")
		},
	})

	return &TieredScheduleCache{
		local:   local,
		remote:  remote,
		breaker: breaker,
		clock:   local.clock,
		logger:  logger,
	}
}

// Get checks memory first, then the remote tier, promoting remote hits
func (c *TieredScheduleCache) Get(restaurantID string) (entities.CacheEntry, bool) {
	if entry, ok := c.local.Get(restaurantID); ok {
		return entry, true
	}

	data, err := c.call(func(ctx context.Context) ([]byte, error) {
		return c.remote.Get(ctx, scheduleKeyPrefix+restaurantID)
	})
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			c.logger.Debug().Err(err).Str("restaurant_id", restaurantID).Msg("Remote schedule cache get failed")
		}
		return entities.CacheEntry{}, false
	}

	var entry entities.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn().Err(err).Str("restaurant_id", restaurantID).Msg("Discarding undecodable cached schedule")
		return entities.CacheEntry{}, false
	}
	if entry.Expired(c.clock.Now()) {
		return entities.CacheEntry{}, false
	}

	c.local.Set(restaurantID, entry)
	return entry, true
}

// Set writes through to both tiers
func (c *TieredScheduleCache) Set(restaurantID string, entry entities.CacheEntry) {
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = c.clock.Now().Add(c.local.TTL())
	}
	c.local.Set(restaurantID, entry)

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Err(err).Str("restaurant_id", restaurantID).Msg("Failed to encode schedule for remote cache")
		return
	}
	ttl := entry.ExpiresAt.Sub(c.clock.Now())
	if ttl <= 0 {
		return
	}
	if _, err := c.call(func(ctx context.Context) ([]byte, error) {
		return nil, c.remote.Set(ctx, scheduleKeyPrefix+restaurantID, data, ttl)
	}); err != nil {
		c.logger.Debug().Err(err).Str("restaurant_id", restaurantID).Msg("Remote schedule cache set failed")
	}
}

// Delete removes the entry from both tiers
func (c *TieredScheduleCache) Delete(restaurantID string) {
	c.local.Delete(restaurantID)
	if _, err := c.call(func(ctx context.Context) ([]byte, error) {
		return nil, c.remote.Delete(ctx, scheduleKeyPrefix+restaurantID)
	}); err != nil {
		c.logger.Debug().Err(err).Str("restaurant_id", restaurantID).Msg("Remote schedule cache delete failed")
	}
}

func (c *TieredScheduleCache) call(fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
		defer cancel()
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	data, _ := result.([]byte)
	return data, nil
}
