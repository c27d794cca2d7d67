package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/repositories"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WarmStats summarizes one warming pass
type WarmStats struct {
	Restaurants int `json:"restaurants"`
	Parsed      int `json:"parsed"`
	Unparsed    int `json:"unparsed"`
}

// ScheduleWarmingService fills the schedule cache ahead of traffic so the
// first open-now search does not pay for parsing the whole catalog.
type ScheduleWarmingService struct {
	repo   repositories.RestaurantRepository
	engine *AvailabilityEngine
	logger zerolog.Logger
}

// NewScheduleWarmingService creates a new schedule warming service
func NewScheduleWarmingService(repo repositories.RestaurantRepository, engine *AvailabilityEngine) *ScheduleWarmingService {
	return &ScheduleWarmingService{
		repo:   repo,
		engine: engine,
		logger: log.With().Str("component", "schedule_warming").Logger(),
	}
}

// WarmSchedules parses and caches the hours of every catalog record
func (s *ScheduleWarmingService) WarmSchedules(ctx context.Context) (WarmStats, error) {
	var stats WarmStats

	restaurants, err := s.repo.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch restaurants: %w", err)
	}

	for _, r := range restaurants {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if r == nil {
			continue
		}
		stats.Restaurants++
		if s.engine.Warm(r) {
			stats.Parsed++
		} else {
			stats.Unparsed++
		}
	}

	s.logger.Info().
		Int("restaurants", stats.Restaurants).
		Int("unparsed", stats.Unparsed).
		Msg("Warmed schedule cache")
	return stats, nil
}

// WarmRestaurant drops and re-parses the cached hours of one restaurant,
// typically after its record was edited.
func (s *ScheduleWarmingService) WarmRestaurant(ctx context.Context, id string) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch restaurant: %w", err)
	}

	s.engine.Invalidate(id)
	if !s.engine.Warm(r) {
		s.logger.Warn().Str("restaurant_id", id).Msg("Warmed restaurant has unparseable hours")
	}
	return nil
}

// StartPeriodicWarming warms once, then again every interval until ctx is
// done. The repeat runs on its own goroutine.
func (s *ScheduleWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("warming interval must be positive, got %s", interval)
	}

	if _, err := s.WarmSchedules(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Initial schedule warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Debug().Msg("Stopping schedule warming")
				return
			case <-ticker.C:
				if _, err := s.WarmSchedules(ctx); err != nil {
					s.logger.Warn().Err(err).Msg("Periodic schedule warming failed")
				}
			}
		}
	}()
	return nil
}
