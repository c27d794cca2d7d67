package services

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // resolution must not depend on the host zoneinfo

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimezone is used when no zone can be resolved
const DefaultTimezone = "UTC"

const (
	tzEastern  = "America/New_York"
	tzCentral  = "America/Chicago"
	tzMountain = "America/Denver"
	tzArizona  = "America/Phoenix"
	tzPacific  = "America/Los_Angeles"
	tzAlaska   = "America/Anchorage"
	tzHawaii   = "Pacific/Honolulu"
)

// stateTimezones maps USPS state codes to the zone covering most of the
// state's population.
var stateTimezones = map[string]string{
	"AL": tzCentral, "AK": tzAlaska, "AZ": tzArizona, "AR": tzCentral,
	"CA": tzPacific, "CO": tzMountain, "CT": tzEastern, "DE": tzEastern,
	"DC": tzEastern, "FL": tzEastern, "GA": tzEastern, "HI": tzHawaii,
	"ID": tzMountain, "IL": tzCentral, "IN": tzEastern, "IA": tzCentral,
	"KS": tzCentral, "KY": tzEastern, "LA": tzCentral, "ME": tzEastern,
	"MD": tzEastern, "MA": tzEastern, "MI": tzEastern, "MN": tzCentral,
	"MS": tzCentral, "MO": tzCentral, "MT": tzMountain, "NE": tzCentral,
	"NV": tzPacific, "NH": tzEastern, "NJ": tzEastern, "NM": tzMountain,
	"NY": tzEastern, "NC": tzEastern, "ND": tzCentral, "OH": tzEastern,
	"OK": tzCentral, "OR": tzPacific, "PA": tzEastern, "RI": tzEastern,
	"SC": tzEastern, "SD": tzCentral, "TN": tzCentral, "TX": tzCentral,
	"UT": tzMountain, "VT": tzEastern, "VA": tzEastern, "WA": tzPacific,
	"WV": tzEastern, "WI": tzCentral, "WY": tzMountain,
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "washington dc": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD", "massachusetts": "MA",
	"michigan": "MI", "minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
	"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN",
	"texas": "TX", "utah": "UT", "vermont": "VT", "virginia": "VA",
	"washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// TimezoneResolver maps region identifiers to IANA zones and loads them.
type TimezoneResolver struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	locations map[string]*time.Location
}

// NewTimezoneResolver creates a resolver logging through the global logger
func NewTimezoneResolver() *TimezoneResolver {
	return NewTimezoneResolverWithLogger(log.Logger)
}

// NewTimezoneResolverWithLogger creates a resolver with an explicit logger
func NewTimezoneResolverWithLogger(logger zerolog.Logger) *TimezoneResolver {
	return &TimezoneResolver{
		logger:    logger.With().Str("component", "timezone_resolver").Logger(),
		locations: map[string]*time.Location{time.UTC.String(): time.UTC},
	}
}

// Resolve returns the IANA zone for a state abbreviation or full state
// name. Unknown or empty input resolves to UTC with ok=false.
func (r *TimezoneResolver) Resolve(state string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(state))
	if key == "" {
		return DefaultTimezone, false
	}
	if tz, ok := stateTimezones[key]; ok {
		return tz, true
	}
	if code, ok := stateNames[strings.ToLower(key)]; ok {
		return stateTimezones[code], true
	}
	return DefaultTimezone, false
}

// ResolveFor picks the zone for a restaurant: an explicit zone that loads
// wins, otherwise the state table.
func (r *TimezoneResolver) ResolveFor(explicitTZ, state string) (string, bool) {
	if explicitTZ = strings.TrimSpace(explicitTZ); explicitTZ != "" {
		if _, ok := r.load(explicitTZ); ok {
			return explicitTZ, true
		}
		r.logger.Warn().Str("timezone", explicitTZ).Msg("Ignoring unloadable timezone, falling back to state")
	}

	tz, ok := r.Resolve(state)
	if !ok {
		r.logger.Warn().Str("state", state).Msg("Timezone unresolved, defaulting to UTC")
	}
	return tz, ok
}

// Location loads tz, falling back to UTC. The returned name is the zone
// actually used.
func (r *TimezoneResolver) Location(tz string) (*time.Location, string) {
	if loc, ok := r.load(tz); ok {
		return loc, tz
	}
	if tz != "" {
		r.logger.Warn().Str("timezone", tz).Msg("Unknown timezone, using UTC")
	}
	return time.UTC, DefaultTimezone
}

func (r *TimezoneResolver) load(tz string) (*time.Location, bool) {
	if tz == "" {
		return nil, false
	}

	r.mu.RLock()
	loc, ok := r.locations[tz]
	r.mu.RUnlock()
	if ok {
		return loc, true
	}

	// Invalid zones are never cached.
	loaded, err := time.LoadLocation(tz)
	if err != nil || tz == "Local" {
		return nil, false
	}

	r.mu.Lock()
	r.locations[tz] = loaded
	r.mu.Unlock()
	return loaded, true
}
