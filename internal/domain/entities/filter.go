package entities

import (
	"math"
	"strings"
)

// DefaultRadiusMiles applies when FilterCriteria.RadiusMiles is not a
// positive finite number
const DefaultRadiusMiles = 10.0

// FilterAll is the sentinel that clears a categorical filter
const FilterAll = "all"

// FilterCriteria is the set of user-facing filter toggles. Each field is an
// independent predicate; empty or "all" values disable it.
type FilterCriteria struct {
	SearchText  string  `json:"search_text,omitempty"`
	Agency      string  `json:"agency,omitempty"`
	Dietary     string  `json:"dietary,omitempty"`
	Category    string  `json:"category,omitempty"`
	OpenNow     bool    `json:"open_now,omitempty"`
	NearMe      bool    `json:"near_me,omitempty"`
	RadiusMiles float64 `json:"radius_miles,omitempty"`
}

// Normalized returns a copy with whitespace trimmed, "all" sentinels
// cleared, and the radius defaulted.
func (c FilterCriteria) Normalized() FilterCriteria {
	c.SearchText = strings.TrimSpace(c.SearchText)
	c.Agency = clearAll(c.Agency)
	c.Dietary = clearAll(c.Dietary)
	c.Category = clearAll(c.Category)
	if !(c.RadiusMiles > 0) || math.IsInf(c.RadiusMiles, 1) {
		c.RadiusMiles = DefaultRadiusMiles
	}
	return c
}

func clearAll(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, FilterAll) {
		return ""
	}
	return v
}
