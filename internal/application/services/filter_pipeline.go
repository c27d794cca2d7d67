package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// dietarySynonyms maps a dietary filter value to the spellings that
// certification text uses for it.
var dietarySynonyms = map[string][]string{
	"meat":           {"meat", "fleishig", "fleishik"},
	"dairy":          {"dairy", "milchig", "milchik"},
	"pareve":         {"pareve", "parve"},
	"chalav yisroel": {"chalav yisroel", "cholov yisroel", "chalav yisrael", "cholov yisrael"},
	"pas yisroel":    {"pas yisroel", "pat yisrael", "pas yisrael"},
}

// FilterPipeline narrows and orders a restaurant catalog for one request.
type FilterPipeline struct {
	engine *AvailabilityEngine
	logger zerolog.Logger
}

// NewFilterPipeline creates a pipeline evaluating open-now through engine
func NewFilterPipeline(engine *AvailabilityEngine) *FilterPipeline {
	return &FilterPipeline{
		engine: engine,
		logger: log.With().Str("component", "filter_pipeline").Logger(),
	}
}

// Apply returns the records passing every active predicate. With a valid
// userLocation the result is ordered by ascending distance, records without
// usable coordinates last; otherwise input order is kept.
func (p *FilterPipeline) Apply(records []*entities.Restaurant, criteria entities.FilterCriteria, userLocation *entities.GeoPoint, nowUTC time.Time) []*entities.Restaurant {
	results := p.ApplyDetailed(records, criteria, userLocation, nowUTC)
	out := make([]*entities.Restaurant, len(results))
	for i, r := range results {
		out[i] = r.Restaurant
	}
	return out
}

// ApplyDetailed is Apply, also returning the status and distance computed
// for each record.
func (p *FilterPipeline) ApplyDetailed(records []*entities.Restaurant, criteria entities.FilterCriteria, userLocation *entities.GeoPoint, nowUTC time.Time) []entities.RestaurantResult {
	criteria = criteria.Normalized()
	query := newTextQuery(criteria)

	var origin entities.GeoPoint
	hasOrigin := userLocation != nil && userLocation.Valid()
	if hasOrigin {
		origin = *userLocation
	}
	if criteria.NearMe && !hasOrigin {
		p.logger.Debug().Msg("Near-me requested without a usable location, no restaurant can match")
		return []entities.RestaurantResult{}
	}

	candidates := make([]candidate, 0, len(records))
	for i, r := range records {
		if r == nil {
			p.logger.Warn().Int("index", i).Msg("Skipping nil restaurant record")
			continue
		}

		c, keep, err := p.evaluate(r, criteria, query, origin, hasOrigin, nowUTC)
		if err != nil {
			p.logger.Warn().Err(err).Str("restaurant_id", r.ID).Msg("Excluding restaurant that failed evaluation")
			continue
		}
		if keep {
			candidates = append(candidates, c)
		}
	}

	if hasOrigin {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.located != b.located {
				return a.located
			}
			return a.located && a.distance < b.distance
		})
	}

	out := make([]entities.RestaurantResult, len(candidates))
	for i, c := range candidates {
		out[i] = c.result
	}
	return out
}

type candidate struct {
	result   entities.RestaurantResult
	distance float64
	located  bool
}

// evaluate runs the predicate chain for one record. A panic inside is
// converted to an error so one bad record cannot abort the request.
func (p *FilterPipeline) evaluate(
	r *entities.Restaurant,
	criteria entities.FilterCriteria,
	query textQuery,
	origin entities.GeoPoint,
	hasOrigin bool,
	nowUTC time.Time,
) (c candidate, keep bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c, keep, err = candidate{}, false, fmt.Errorf("panic evaluating restaurant: %v", rec)
		}
	}()

	c.result.Restaurant = r
	if !query.matchesSearch(r) || !query.matchesAgency(r) || !query.matchesDietary(r) || !query.matchesCategory(r) {
		return c, false, nil
	}

	if hasOrigin {
		if loc, ok := r.Location(); ok {
			d, _ := DistanceMiles(origin, loc)
			c.distance, c.located = d, true
			c.result.DistanceMiles = &d
		}
	}
	if criteria.NearMe && (!c.located || c.distance > criteria.RadiusMiles) {
		return c, false, nil
	}

	if criteria.OpenNow {
		status := p.engine.StatusFor(r, nowUTC)
		c.result.Availability = &status
		if !status.IsOpen {
			return c, false, nil
		}
	}
	return c, true, nil
}

// textQuery holds the case-folded text predicates of one request.
type textQuery struct {
	search   string
	agency   string
	dietary  []string
	category string
}

func newTextQuery(c entities.FilterCriteria) textQuery {
	q := textQuery{
		search:   fold(c.SearchText),
		agency:   fold(c.Agency),
		category: fold(c.Category),
	}
	if c.Dietary != "" {
		key := strings.ToLower(c.Dietary)
		if synonyms, ok := dietarySynonyms[key]; ok {
			q.dietary = synonyms
		} else {
			q.dietary = []string{fold(c.Dietary)}
		}
	}
	return q
}

func (q textQuery) matchesSearch(r *entities.Restaurant) bool {
	if q.search == "" {
		return true
	}
	for _, field := range []string{r.Name, r.Address, r.City, r.State, r.CuisineType, r.CertifyingAgency} {
		if strings.Contains(fold(field), q.search) {
			return true
		}
	}
	return false
}

func (q textQuery) matchesAgency(r *entities.Restaurant) bool {
	return q.agency == "" || strings.Contains(fold(r.CertifyingAgency), q.agency)
}

func (q textQuery) matchesDietary(r *entities.Restaurant) bool {
	if len(q.dietary) == 0 {
		return true
	}
	cert, tag := fold(r.CertifyingAgency), fold(r.Dietary)
	for _, term := range q.dietary {
		if strings.Contains(cert, term) || strings.Contains(tag, term) {
			return true
		}
	}
	return false
}

func (q textQuery) matchesCategory(r *entities.Restaurant) bool {
	return q.category == "" || strings.Contains(fold(r.CuisineType), q.category)
}

// fold case-folds s for caseless substring matching. A Caser is not safe
// for concurrent use, so each call gets its own.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
