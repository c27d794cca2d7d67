package services

import (
	"math"
	"testing"
	"time"

	"github.com/kosherdirectory/discovery/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func located(r *entities.Restaurant, p entities.GeoPoint) *entities.Restaurant {
	lat, lng := p.Latitude, p.Longitude
	r.Latitude, r.Longitude = &lat, &lng
	return r
}

func ids(records []*entities.Restaurant) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sampleCatalog() []*entities.Restaurant {
	return []*entities.Restaurant{
		{ID: "a", Name: "Grill House", City: "Miami", State: "FL", CertifyingAgency: "ORB Meat", CuisineType: "Steakhouse", Hours: textHours("Daily: 24 hours")},
		{ID: "b", Name: "Café Lev", City: "Miami", State: "FL", CertifyingAgency: "OU Dairy Cholov Yisroel", CuisineType: "Cafe", Hours: textHours("Mon-Fri 9AM-5PM")},
		{ID: "c", Name: "Pita Spot", City: "Boca Raton", State: "FL", CertifyingAgency: "orb", Dietary: "Parve", CuisineType: "Israeli", Hours: textHours("call for hours")},
		{ID: "d", Name: "Sushi Nami", City: "Fort Lauderdale", State: "FL", CertifyingAgency: "Kosher Miami", CuisineType: "Sushi", Hours: textHours("Sunday: Closed")},
	}
}

// Monday 2024-01-15, noon in Miami
var mondayNoonET = time.Date(2024, time.January, 15, 17, 0, 0, 0, time.UTC)

func TestFilterPipeline_NoCriteriaKeepsOrder(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()

	out := p.Apply(catalog, entities.FilterCriteria{}, nil, mondayNoonET)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(out))
}

func TestFilterPipeline_Agency(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())

	out := p.Apply(sampleCatalog(), entities.FilterCriteria{Agency: "ORB"}, nil, mondayNoonET)
	assert.Equal(t, []string{"a", "c"}, ids(out))

	out = p.Apply(sampleCatalog(), entities.FilterCriteria{Agency: "All"}, nil, mondayNoonET)
	assert.Len(t, out, 4)
}

func TestFilterPipeline_SearchTextIsCaseless(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())

	out := p.Apply(sampleCatalog(), entities.FilterCriteria{SearchText: "  CAFÉ "}, nil, mondayNoonET)
	assert.Equal(t, []string{"b"}, ids(out))

	out = p.Apply(sampleCatalog(), entities.FilterCriteria{SearchText: "miami"}, nil, mondayNoonET)
	assert.Equal(t, []string{"a", "b", "d"}, ids(out))
}

func TestFilterPipeline_DietarySynonyms(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())

	out := p.Apply(sampleCatalog(), entities.FilterCriteria{Dietary: "pareve"}, nil, mondayNoonET)
	assert.Equal(t, []string{"c"}, ids(out))

	out = p.Apply(sampleCatalog(), entities.FilterCriteria{Dietary: "Chalav Yisroel"}, nil, mondayNoonET)
	assert.Equal(t, []string{"b"}, ids(out))

	out = p.Apply(sampleCatalog(), entities.FilterCriteria{Dietary: "meat"}, nil, mondayNoonET)
	assert.Equal(t, []string{"a"}, ids(out))
}

func TestFilterPipeline_Category(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())

	out := p.Apply(sampleCatalog(), entities.FilterCriteria{Category: "sushi"}, nil, mondayNoonET)
	assert.Equal(t, []string{"d"}, ids(out))
}

func TestFilterPipeline_OpenNowExcludesClosedAndUnknown(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())

	results := p.ApplyDetailed(sampleCatalog(), entities.FilterCriteria{OpenNow: true}, nil, mondayNoonET)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Restaurant.ID)
	assert.Equal(t, "b", results[1].Restaurant.ID)
	for _, r := range results {
		require.NotNil(t, r.Availability)
		assert.True(t, r.Availability.IsOpen)
		assert.Nil(t, r.DistanceMiles)
	}

	saturday := time.Date(2024, time.January, 20, 17, 0, 0, 0, time.UTC)
	out := p.Apply(sampleCatalog(), entities.FilterCriteria{OpenNow: true}, nil, saturday)
	assert.Equal(t, []string{"a"}, ids(out))
}

func TestFilterPipeline_NearMeWithoutLocationMatchesNothing(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()
	located(catalog[0], miamiBeach)

	out := p.Apply(catalog, entities.FilterCriteria{NearMe: true}, nil, mondayNoonET)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out = p.Apply(catalog, entities.FilterCriteria{NearMe: true}, &entities.GeoPoint{}, mondayNoonET)
	assert.Empty(t, out)
}

func TestFilterPipeline_SortsByDistance(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()
	located(catalog[0], bocaRaton)
	located(catalog[2], miamiBeach)
	located(catalog[3], fortLauderdale)
	// catalog[1] has no coordinates

	results := p.ApplyDetailed(catalog, entities.FilterCriteria{}, &miami, mondayNoonET)

	require.Len(t, results, 4)
	assert.Equal(t, []string{"c", "d", "a", "b"}, []string{
		results[0].Restaurant.ID, results[1].Restaurant.ID, results[2].Restaurant.ID, results[3].Restaurant.ID,
	})
	require.NotNil(t, results[0].DistanceMiles)
	assert.Less(t, *results[0].DistanceMiles, *results[1].DistanceMiles)
	assert.Nil(t, results[3].DistanceMiles)
}

func TestFilterPipeline_InvalidCoordinatesSortLastInInputOrder(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()
	located(catalog[0], entities.GeoPoint{Latitude: 0, Longitude: 0})
	located(catalog[3], fortLauderdale)

	out := p.Apply(catalog, entities.FilterCriteria{}, &miami, mondayNoonET)
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids(out))
}

func TestFilterPipeline_NearMeRadius(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()
	located(catalog[0], bocaRaton)
	located(catalog[2], miamiBeach)
	located(catalog[3], fortLauderdale)

	out := p.Apply(catalog, entities.FilterCriteria{NearMe: true}, &miami, mondayNoonET)
	assert.Equal(t, []string{"c"}, ids(out))

	out = p.Apply(catalog, entities.FilterCriteria{NearMe: true, RadiusMiles: 30}, &miami, mondayNoonET)
	assert.Equal(t, []string{"c", "d"}, ids(out))

	// an unusable radius falls back to the default instead of admitting everything
	out = p.Apply(catalog, entities.FilterCriteria{NearMe: true, RadiusMiles: math.NaN()}, &miami, mondayNoonET)
	assert.Equal(t, []string{"c"}, ids(out))
}

func TestFilterPipeline_CombinedPredicates(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := sampleCatalog()
	located(catalog[0], miamiBeach)
	located(catalog[2], miamiBeach)

	out := p.Apply(catalog, entities.FilterCriteria{Agency: "orb", OpenNow: true, NearMe: true}, &miami, mondayNoonET)
	assert.Equal(t, []string{"a"}, ids(out))
}

func TestFilterPipeline_SkipsNilRecords(t *testing.T) {
	p := NewFilterPipeline(newTestEngine())
	catalog := append([]*entities.Restaurant{nil}, sampleCatalog()...)

	out := p.Apply(catalog, entities.FilterCriteria{Agency: "orb"}, nil, mondayNoonET)
	assert.Equal(t, []string{"a", "c"}, ids(out))
}
