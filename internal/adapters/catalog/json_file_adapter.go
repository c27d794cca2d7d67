package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/repositories"
	apperrors "github.com/kosherdirectory/discovery/pkg/errors"
	"github.com/rs/zerolog/log"
)

// JSONFileAdapter serves a restaurant catalog exported as a JSON array
type JSONFileAdapter struct {
	restaurants []*entities.Restaurant
	byID        map[string]*entities.Restaurant
}

// NewJSONFileAdapter reads and validates the catalog at path
func NewJSONFileAdapter(path string) (repositories.RestaurantRepository, error) {
	restaurants, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateCatalog(restaurants); err != nil {
		return nil, err
	}

	byID := make(map[string]*entities.Restaurant, len(restaurants))
	for _, r := range restaurants {
		byID[r.ID] = r
	}
	return &JSONFileAdapter{restaurants: restaurants, byID: byID}, nil
}

// LoadCatalog reads and parses a restaurant catalog from a JSON file.
// Records that do not decode are logged and skipped.
func LoadCatalog(path string) ([]*entities.Restaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	restaurants := make([]*entities.Restaurant, 0, len(raw))
	for i, msg := range raw {
		var r *entities.Restaurant
		if err := json.Unmarshal(msg, &r); err != nil {
			log.Warn().Err(err).Int("index", i).Str("path", path).Msg("Skipping undecodable catalog record")
			continue
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, nil
}

// ValidateCatalog checks that every record is present and has a unique id.
func ValidateCatalog(restaurants []*entities.Restaurant) error {
	seen := make(map[string]struct{}, len(restaurants))

	for i, r := range restaurants {
		if r == nil {
			return fmt.Errorf("restaurant at index %d: null record", i)
		}
		if r.ID == "" {
			return fmt.Errorf("restaurant at index %d: missing id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("restaurant at index %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	return nil
}

// List returns the catalog in file order
func (a *JSONFileAdapter) List(ctx context.Context) ([]*entities.Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*entities.Restaurant, len(a.restaurants))
	copy(out, a.restaurants)
	return out, nil
}

// GetByID retrieves a restaurant by ID
func (a *JSONFileAdapter) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := a.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("restaurant with id %s not found", id))
	}
	return r, nil
}
