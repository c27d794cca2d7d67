package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduleWarmingService_WarmSchedules(t *testing.T) {
	repo := new(MockRestaurantRepo)
	catalog := append(sampleCatalog(), nil)
	repo.On("List", mock.Anything).Return(catalog, nil)
	cache := newFakeScheduleCache()
	engine := NewAvailabilityEngine(NewHoursParser(), NewTimezoneResolver(), cache)
	svc := NewScheduleWarmingService(repo, engine)

	stats, err := svc.WarmSchedules(context.Background())

	require.NoError(t, err)
	assert.Equal(t, WarmStats{Restaurants: 4, Parsed: 3, Unparsed: 1}, stats)
	assert.Equal(t, 4, cache.sets)

	// warmed entries are served without reparsing
	engine.StatusFor(catalog[0], mondayNoonET)
	assert.Equal(t, 4, cache.sets)
}

func TestScheduleWarmingService_WarmSchedulesRepositoryError(t *testing.T) {
	repo := new(MockRestaurantRepo)
	repo.On("List", mock.Anything).Return(nil, errors.New("timeout"))
	svc := NewScheduleWarmingService(repo, newTestEngine())

	_, err := svc.WarmSchedules(context.Background())
	assert.ErrorContains(t, err, "timeout")
}

func TestScheduleWarmingService_WarmRestaurant(t *testing.T) {
	repo := new(MockRestaurantRepo)
	r := &entities.Restaurant{ID: "r1", State: "NY", Hours: textHours("Daily: 24 hours")}
	repo.On("GetByID", mock.Anything, "r1").Return(r, nil)
	cache := newFakeScheduleCache()
	svc := NewScheduleWarmingService(repo, NewAvailabilityEngine(NewHoursParser(), NewTimezoneResolver(), cache))

	require.NoError(t, svc.WarmRestaurant(context.Background(), "r1"))

	assert.Equal(t, 1, cache.deletes)
	entry, ok := cache.Get("r1")
	require.True(t, ok)
	assert.True(t, entry.HoursParsed)
}

// countingRestaurantRepo counts List calls made with a live context
type countingRestaurantRepo struct {
	lists atomic.Int32
}

func (r *countingRestaurantRepo) List(ctx context.Context) ([]*entities.Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lists.Add(1)
	return sampleCatalog(), nil
}

func (r *countingRestaurantRepo) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	return nil, errors.New("not implemented")
}

func TestScheduleWarmingService_StartPeriodicWarming(t *testing.T) {
	repo := &countingRestaurantRepo{}
	svc := NewScheduleWarmingService(repo, newTestEngine())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.StartPeriodicWarming(ctx, 10*time.Millisecond))
	assert.GreaterOrEqual(t, repo.lists.Load(), int32(1))

	require.Eventually(t, func() bool { return repo.lists.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	stopped := repo.lists.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, repo.lists.Load())
}

func TestScheduleWarmingService_StartPeriodicWarmingRejectsBadInterval(t *testing.T) {
	repo := &countingRestaurantRepo{}
	svc := NewScheduleWarmingService(repo, newTestEngine())

	for _, interval := range []time.Duration{0, -time.Second} {
		err := svc.StartPeriodicWarming(context.Background(), interval)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(0), repo.lists.Load())
}
