package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	apperrors "github.com/kosherdirectory/discovery/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRestaurantRepo struct {
	mock.Mock
}

func (m *MockRestaurantRepo) List(ctx context.Context) ([]*entities.Restaurant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepo) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Restaurant), args.Error(1)
}

func TestDiscoveryService_Search(t *testing.T) {
	repo := new(MockRestaurantRepo)
	repo.On("List", mock.Anything).Return(sampleCatalog(), nil)
	svc := NewDiscoveryService(repo, newTestEngine())

	results, err := svc.Search(context.Background(), entities.FilterCriteria{Agency: "orb", OpenNow: true}, nil, mondayNoonET)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Restaurant.ID)
	require.NotNil(t, results[0].Availability)
	assert.Equal(t, entities.StateOpen, results[0].Availability.State)
	repo.AssertExpectations(t)
}

func TestDiscoveryService_SearchWrapsRepositoryErrors(t *testing.T) {
	repo := new(MockRestaurantRepo)
	repo.On("List", mock.Anything).Return(nil, errors.New("connection refused"))
	svc := NewDiscoveryService(repo, newTestEngine())

	results, err := svc.Search(context.Background(), entities.FilterCriteria{}, nil, mondayNoonET)

	assert.Nil(t, results)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDiscoveryService_NearMePolicies(t *testing.T) {
	t.Run("reject returns empty", func(t *testing.T) {
		repo := new(MockRestaurantRepo)
		repo.On("List", mock.Anything).Return(sampleCatalog(), nil)
		svc := NewDiscoveryService(repo, newTestEngine())

		results, err := svc.Search(context.Background(), entities.FilterCriteria{NearMe: true}, nil, mondayNoonET)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("error policy fails validation", func(t *testing.T) {
		repo := new(MockRestaurantRepo)
		svc := NewDiscoveryService(repo, newTestEngine(), WithNearMePolicy(NearMeValidationError))

		_, err := svc.Search(context.Background(), entities.FilterCriteria{NearMe: true}, &entities.GeoPoint{}, mondayNoonET)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		repo.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("error policy with location searches", func(t *testing.T) {
		repo := new(MockRestaurantRepo)
		catalog := sampleCatalog()
		located(catalog[2], miamiBeach)
		repo.On("List", mock.Anything).Return(catalog, nil)
		svc := NewDiscoveryService(repo, newTestEngine(), WithNearMePolicy(NearMeValidationError))

		results, err := svc.Search(context.Background(), entities.FilterCriteria{NearMe: true}, &miami, mondayNoonET)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "c", results[0].Restaurant.ID)
		require.NotNil(t, results[0].DistanceMiles)
	})
}

func TestDiscoveryService_Status(t *testing.T) {
	repo := new(MockRestaurantRepo)
	repo.On("GetByID", mock.Anything, "b").Return(sampleCatalog()[1], nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("restaurant not found"))
	svc := NewDiscoveryService(repo, newTestEngine())

	status, err := svc.Status(context.Background(), "b", mondayNoonET)
	require.NoError(t, err)
	assert.True(t, status.IsOpen)
	assert.Equal(t, "America/New_York", status.Timezone)

	_, err = svc.Status(context.Background(), "missing", mondayNoonET)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = svc.Status(context.Background(), "", mondayNoonET)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
