package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Restaurant is one catalog record as supplied by the directory. The
// engine only reads it.
type Restaurant struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Address          string     `json:"address" db:"address"`
	City             string     `json:"city" db:"city"`
	State            string     `json:"state" db:"state"`
	Latitude         *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude        *float64   `json:"longitude,omitempty" db:"longitude"`
	Hours            HoursInput `json:"hours_raw" db:"-"`
	CuisineType      string     `json:"cuisine_type,omitempty" db:"cuisine_type"`
	CertifyingAgency string     `json:"certifying_agency_text,omitempty" db:"certifying_agency_text"`
	Dietary          string     `json:"dietary,omitempty" db:"dietary"`
	Timezone         string     `json:"timezone,omitempty" db:"timezone"`
	StoredStatus     string     `json:"status,omitempty" db:"status"`
}

// StructuredHours is one entry of the structured hours format, with times
// written as "HHMM".
type StructuredHours struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// HoursInput carries whichever hours representation the record has. It
// decodes from either a JSON string or a JSON array of StructuredHours.
type HoursInput struct {
	Text       string
	Structured []StructuredHours
}

// IsEmpty reports whether no hours were supplied at all
func (h HoursInput) IsEmpty() bool {
	return strings.TrimSpace(h.Text) == "" && len(h.Structured) == 0
}

// UnmarshalJSON accepts a string, an array of StructuredHours, or null
func (h *HoursInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*h = HoursInput{}
		return nil
	case data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*h = HoursInput{Text: text}
		return nil
	case data[0] == '[':
		var structured []StructuredHours
		if err := json.Unmarshal(data, &structured); err != nil {
			return err
		}
		*h = HoursInput{Structured: structured}
		return nil
	}
	return fmt.Errorf("hours_raw must be a string or an array, got %s", data)
}

// MarshalJSON writes back the representation that was supplied
func (h HoursInput) MarshalJSON() ([]byte, error) {
	switch {
	case len(h.Structured) > 0:
		return json.Marshal(h.Structured)
	case h.Text != "":
		return json.Marshal(h.Text)
	}
	return []byte("null"), nil
}

// Location returns the record's coordinates and whether they form a valid
// GeoPoint.
func (r *Restaurant) Location() (GeoPoint, bool) {
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return GeoPoint{}, false
	}
	p := GeoPoint{Latitude: *r.Latitude, Longitude: *r.Longitude}
	return p, p.Valid()
}

// GeoPoint is a latitude/longitude pair in degrees
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is finite, in range, and not the (0,0)
// placeholder upstream data uses for missing coordinates.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return false
	}
	return !(p.Latitude == 0 && p.Longitude == 0)
}

// RestaurantResult is one restaurant that passed filtering, with whatever
// was computed for it along the way.
type RestaurantResult struct {
	Restaurant    *Restaurant         `json:"restaurant"`
	Availability  *AvailabilityStatus `json:"availability,omitempty"`
	DistanceMiles *float64            `json:"distance_miles,omitempty"`
}
