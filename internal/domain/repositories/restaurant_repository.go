package repositories

import (
	"context"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
)

// RestaurantRepository defines read access to the restaurant catalog
type RestaurantRepository interface {
	// List retrieves every listed restaurant in catalog order
	List(ctx context.Context) ([]*entities.Restaurant, error)

	// GetByID retrieves a restaurant by ID
	GetByID(ctx context.Context, id string) (*entities.Restaurant, error)
}
