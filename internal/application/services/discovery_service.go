package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/repositories"
	"github.com/kosherdirectory/discovery/internal/infrastructure/observability"
	apperrors "github.com/kosherdirectory/discovery/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// NearMePolicy decides what a near-me search without a usable location does
type NearMePolicy int

const (
	// NearMeRejectAll returns an empty result
	NearMeRejectAll NearMePolicy = iota
	// NearMeValidationError fails the search with a validation error
	NearMeValidationError
)

// DiscoveryService answers catalog searches and single-restaurant status
// lookups on top of a RestaurantRepository.
type DiscoveryService struct {
	repo     repositories.RestaurantRepository
	pipeline *FilterPipeline
	engine   *AvailabilityEngine
	nearMe   NearMePolicy
	metrics  *observability.Metrics
}

// DiscoveryOption configures a DiscoveryService
type DiscoveryOption func(*DiscoveryService)

// WithNearMePolicy sets the behavior for near-me searches without a location
func WithNearMePolicy(p NearMePolicy) DiscoveryOption {
	return func(s *DiscoveryService) { s.nearMe = p }
}

// WithSearchMetrics records filter duration and result counts
func WithSearchMetrics(m *observability.Metrics) DiscoveryOption {
	return func(s *DiscoveryService) { s.metrics = m }
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(repo repositories.RestaurantRepository, engine *AvailabilityEngine, opts ...DiscoveryOption) *DiscoveryService {
	s := &DiscoveryService{
		repo:     repo,
		pipeline: NewFilterPipeline(engine),
		engine:   engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search loads the catalog and runs it through the filter pipeline
func (s *DiscoveryService) Search(ctx context.Context, criteria entities.FilterCriteria, userLocation *entities.GeoPoint, nowUTC time.Time) ([]entities.RestaurantResult, error) {
	ctx = observability.WithRequestID(ctx, uuid.NewString())
	ctx, span := observability.StartSpan(ctx, "DiscoveryService.Search")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	criteria = criteria.Normalized()
	span.SetAttributes(
		attribute.Bool("filter.open_now", criteria.OpenNow),
		attribute.Bool("filter.near_me", criteria.NearMe),
	)

	if criteria.NearMe && (userLocation == nil || !userLocation.Valid()) && s.nearMe == NearMeValidationError {
		err := apperrors.NewValidationError("near-me search requires a valid user location")
		observability.RecordError(span, err)
		return nil, err
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Msg("Failed to load restaurant catalog")
		return nil, asAppError("failed to load restaurant catalog", err)
	}

	start := time.Now()
	results := s.pipeline.ApplyDetailed(records, criteria, userLocation, nowUTC)
	elapsed := time.Since(start)
	s.metrics.RecordFilter(ctx, elapsed, len(results), criteria.OpenNow, criteria.NearMe)

	logger.Info().
		Int("catalog_size", len(records)).
		Int("results", len(results)).
		Dur("duration", elapsed).
		Msg("Search completed")
	return results, nil
}

// Status returns the current availability of one restaurant
func (s *DiscoveryService) Status(ctx context.Context, id string, nowUTC time.Time) (entities.AvailabilityStatus, error) {
	ctx, span := observability.StartSpan(ctx, "DiscoveryService.Status")
	defer span.End()
	span.SetAttributes(attribute.String("restaurant.id", id))

	if id == "" {
		return entities.AvailabilityStatus{}, apperrors.NewValidationError("restaurant id is required")
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		observability.RecordError(span, err)
		return entities.AvailabilityStatus{}, asAppError("failed to load restaurant", err)
	}
	return s.engine.StatusFor(r, nowUTC), nil
}

func asAppError(message string, err error) error {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return apperrors.NewInternalError(message, err)
}
