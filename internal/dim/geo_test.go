package dim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

func TestResolveGeo_MedianResistsOutliers(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 1037, City: "São Paulo", State: "SP", Lat: -23.54, Lng: -46.63},
		{ZipPrefix: 1037, City: "sao paulo", State: "SP", Lat: -23.55, Lng: -46.64},
		{ZipPrefix: 1037, City: "SAO PAULO", State: "SP", Lat: 45.00, Lng: 10.00},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, 1037, got[0].ZipPrefix)
	assert.Equal(t, "sao paulo", got[0].City)
	assert.InDelta(t, -23.54, got[0].Lat, 1e-9)
	assert.InDelta(t, -46.63, got[0].Lng, 1e-9)
	assert.Equal(t, 3, got[0].SampleCount)
	assert.False(t, got[0].Ambiguous)
	assert.Equal(t, "SP", got[0].DominantState)
}

func TestResolveGeo_HighestSampleCityWins(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 5000, City: "alpha", State: "RJ", Lat: 1, Lng: 1},
		{ZipPrefix: 5000, City: "beta", State: "MG", Lat: 2, Lng: 2},
		{ZipPrefix: 5000, City: "beta", State: "MG", Lat: 4, Lng: 4},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].City)
	assert.Equal(t, 2, got[0].SampleCount)
	assert.InDelta(t, 3.0, got[0].Lat, 1e-9)
	assert.Equal(t, model.StateSet{"MG", "RJ"}, got[0].States)
	assert.True(t, got[0].Ambiguous)
	assert.Equal(t, "MG", got[0].DominantState)
}

func TestResolveGeo_CityTieBreaksOnSmallestName(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 7, City: "zeta", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 7, City: "eta", State: "SP", Lat: 2, Lng: 2},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, "eta", got[0].City)
}

func TestResolveGeo_DominantStateSpansAllCities(t *testing.T) {
	// The winning city group is in SP, but RJ has more samples across the prefix.
	samples := []model.GeoSample{
		{ZipPrefix: 9, City: "a", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "a", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "a", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "b", State: "RJ", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "c", State: "RJ", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "d", State: "RJ", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "e", State: "RJ", Lat: 1, Lng: 1},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].City)
	assert.Equal(t, "RJ", got[0].DominantState)
}

func TestResolveGeo_DominantStateTieSmallestState(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 9, City: "a", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 9, City: "a", State: "RJ", Lat: 1, Lng: 1},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, "RJ", got[0].DominantState)
}

func TestResolveGeo_IndependentOfInputOrder(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 9, City: "Campinas", State: "SP", Lat: -22.9, Lng: -47.1},
		{ZipPrefix: 9, City: "campinas", State: "MG", Lat: -22.8, Lng: -47.0},
		{ZipPrefix: 9, City: "Santos", State: "SP", Lat: -23.9, Lng: -46.3},
		{ZipPrefix: 9, City: "Santos", State: "MG", Lat: -23.8, Lng: -46.4},
		{ZipPrefix: 12, City: "Rio", State: "RJ", Lat: -22.9, Lng: -43.2},
	}
	reversed := make([]model.GeoSample, len(samples))
	for i, s := range samples {
		reversed[len(samples)-1-i] = s
	}

	assert.Equal(t, ResolveGeo(samples), ResolveGeo(reversed))
}

func TestResolveGeo_InvalidSamplesDropPrefix(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 1, City: "   ", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 2, City: "x", State: "SP", Lat: math.NaN(), Lng: 1},
		{ZipPrefix: 3, City: "y", State: "", Lat: 1, Lng: 1},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ZipPrefix)
	assert.Empty(t, got[0].States)
	assert.False(t, got[0].Ambiguous)
	assert.Equal(t, "", got[0].DominantState)
}

func TestResolveGeo_AmbiguousIffMultipleStates(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 10, City: "a", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 10, City: "a", State: "sp", Lat: 1, Lng: 1},
		{ZipPrefix: 20, City: "b", State: "SP", Lat: 1, Lng: 1},
		{ZipPrefix: 20, City: "b", State: "MG", Lat: 1, Lng: 1},
	}

	for _, r := range ResolveGeo(samples) {
		assert.Equal(t, len(r.States) > 1, r.Ambiguous, "zip %d", r.ZipPrefix)
	}
}

func TestResolveGeo_SortedByPrefix(t *testing.T) {
	samples := []model.GeoSample{
		{ZipPrefix: 30, City: "a", Lat: 1, Lng: 1},
		{ZipPrefix: 10, City: "a", Lat: 1, Lng: 1},
		{ZipPrefix: 20, City: "a", Lat: 1, Lng: 1},
	}

	got := ResolveGeo(samples)
	require.Len(t, got, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{got[0].ZipPrefix, got[1].ZipPrefix, got[2].ZipPrefix})
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 2.0, Median([]float64{3, 1, 2}), 1e-9)
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-9)
	assert.True(t, math.IsNaN(Median(nil)))

	vals := []float64{3, 1, 2}
	Median(vals)
	assert.Equal(t, []float64{3, 1, 2}, vals, "input must not be reordered")
}

func TestGeoIndex_Lookup(t *testing.T) {
	idx := IndexGeo([]model.GeoRecord{{ZipPrefix: 1037, City: "sao paulo"}})

	rec, ok := idx.Lookup("01037")
	require.True(t, ok)
	assert.Equal(t, "sao paulo", rec.City)

	_, ok = idx.Lookup(" 1037 ")
	assert.True(t, ok)

	_, ok = idx.Lookup("abc")
	assert.False(t, ok)

	_, ok = idx.Lookup("")
	assert.False(t, ok)

	var empty GeoIndex
	_, ok = empty.Lookup("1037")
	assert.False(t, ok)
}
