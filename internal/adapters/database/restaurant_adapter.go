package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/kosherdirectory/discovery/internal/domain/repositories"
	"github.com/kosherdirectory/discovery/internal/infrastructure/clients/postgres"
	"github.com/kosherdirectory/discovery/internal/infrastructure/observability"
	apperrors "github.com/kosherdirectory/discovery/pkg/errors"
)

const restaurantsTable = "restaurants"

var restaurantColumns = []interface{}{
	"id", "name", "address", "city", "state", "latitude", "longitude",
	"hours_raw", "hours_structured", "cuisine_type", "certifying_agency_text",
	"dietary", "timezone", "status",
}

// restaurantRow mirrors the restaurants table; every descriptive column is
// nullable in the directory schema.
type restaurantRow struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Address          sql.NullString  `db:"address"`
	City             sql.NullString  `db:"city"`
	State            sql.NullString  `db:"state"`
	Latitude         sql.NullFloat64 `db:"latitude"`
	Longitude        sql.NullFloat64 `db:"longitude"`
	HoursRaw         sql.NullString  `db:"hours_raw"`
	HoursStructured  []byte          `db:"hours_structured"`
	CuisineType      sql.NullString  `db:"cuisine_type"`
	CertifyingAgency sql.NullString  `db:"certifying_agency_text"`
	Dietary          sql.NullString  `db:"dietary"`
	Timezone         sql.NullString  `db:"timezone"`
	Status           sql.NullString  `db:"status"`
}

// RestaurantAdapter implements the RestaurantRepository interface
type RestaurantAdapter struct {
	db      *sqlx.DB
	builder *goqu.Database
}

// NewRestaurantAdapter creates a new restaurant adapter
func NewRestaurantAdapter(client *postgres.Client) repositories.RestaurantRepository {
	return &RestaurantAdapter{
		db:      sqlx.NewDb(client.DB(), "postgres"),
		builder: goqu.New("postgres", client.DB()),
	}
}

// List returns every approved restaurant ordered by name
func (a *RestaurantAdapter) List(ctx context.Context) ([]*entities.Restaurant, error) {
	query, args, err := a.builder.Select(restaurantColumns...).
		From(restaurantsTable).
		Where(goqu.Ex{"is_approved": true}).
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []restaurantRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list restaurants", err)
	}

	restaurants := make([]*entities.Restaurant, 0, len(rows))
	for i := range rows {
		restaurants = append(restaurants, rows[i].toEntity(ctx))
	}
	return restaurants, nil
}

// GetByID retrieves an approved restaurant by ID
func (a *RestaurantAdapter) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	query, args, err := a.builder.Select(restaurantColumns...).
		From(restaurantsTable).
		Where(goqu.Ex{"id": id, "is_approved": true}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row restaurantRow
	err = a.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("restaurant with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get restaurant", err)
	}

	return row.toEntity(ctx), nil
}

// toEntity maps a row to a restaurant. Undecodable structured hours are
// dropped with a warning so the record falls back to its text hours.
func (row *restaurantRow) toEntity(ctx context.Context) *entities.Restaurant {
	r := &entities.Restaurant{
		ID:               row.ID,
		Name:             row.Name,
		Address:          row.Address.String,
		City:             row.City.String,
		State:            row.State.String,
		CuisineType:      row.CuisineType.String,
		CertifyingAgency: row.CertifyingAgency.String,
		Dietary:          row.Dietary.String,
		Timezone:         row.Timezone.String,
		StoredStatus:     row.Status.String,
		Hours:            entities.HoursInput{Text: row.HoursRaw.String},
	}

	if row.Latitude.Valid && row.Longitude.Valid {
		lat, lng := row.Latitude.Float64, row.Longitude.Float64
		r.Latitude, r.Longitude = &lat, &lng
	}

	// Structured hours take precedence over the free-text column
	if len(row.HoursStructured) > 0 && string(row.HoursStructured) != "null" {
		var structured []entities.StructuredHours
		if err := json.Unmarshal(row.HoursStructured, &structured); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("restaurant_id", row.ID).
				Msg("Ignoring invalid hours_structured")
		} else {
			r.Hours.Structured = structured
		}
	}
	return r
}
