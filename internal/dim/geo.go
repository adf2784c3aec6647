// Package dim resolves the dimension tables of the warehouse: geolocation,
// customers, products and sellers.
package dim

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/textnorm"
)

type cityGroup struct {
	city string
	lats []float64
	lngs []float64
}

type prefixGroup struct {
	cities      map[string]*cityGroup
	stateCounts map[string]int
}

// ResolveGeo collapses raw geolocation samples into one record per zip prefix.
//
// Samples are grouped by (zip prefix, normalized city). The group with the
// most samples represents the prefix; ties go to the smallest city name. Its
// coordinates are the median latitude and longitude of the group. States and
// the dominant state are computed across every sample of the prefix, and the
// dominant state tie-breaks on the smallest state code, so the result does not
// depend on input order.
//
// Samples with an empty normalized city or non-finite coordinates are not
// valid; a prefix without valid samples produces no record.
func ResolveGeo(samples []model.GeoSample) []model.GeoRecord {
	prefixes := make(map[int]*prefixGroup)
	for _, s := range samples {
		city := textnorm.Normalize(s.City)
		if city == "" || !finite(s.Lat) || !finite(s.Lng) {
			continue
		}

		pg, ok := prefixes[s.ZipPrefix]
		if !ok {
			pg = &prefixGroup{
				cities:      make(map[string]*cityGroup),
				stateCounts: make(map[string]int),
			}
			prefixes[s.ZipPrefix] = pg
		}

		cg, ok := pg.cities[city]
		if !ok {
			cg = &cityGroup{city: city}
			pg.cities[city] = cg
		}
		cg.lats = append(cg.lats, s.Lat)
		cg.lngs = append(cg.lngs, s.Lng)

		if state := textnorm.State(s.State); state != "" {
			pg.stateCounts[state]++
		}
	}

	out := make([]model.GeoRecord, 0, len(prefixes))
	for zip, pg := range prefixes {
		best := pickCityGroup(pg.cities)

		states := make(model.StateSet, 0, len(pg.stateCounts))
		for state := range pg.stateCounts {
			states = append(states, state)
		}
		sort.Strings(states)

		out = append(out, model.GeoRecord{
			ZipPrefix:     zip,
			City:          best.city,
			Lat:           Median(best.lats),
			Lng:           Median(best.lngs),
			States:        states,
			SampleCount:   len(best.lats),
			Ambiguous:     len(states) > 1,
			DominantState: dominantState(states, pg.stateCounts),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ZipPrefix < out[j].ZipPrefix })
	return out
}

func pickCityGroup(cities map[string]*cityGroup) *cityGroup {
	var best *cityGroup
	for _, cg := range cities {
		if best == nil ||
			len(cg.lats) > len(best.lats) ||
			(len(cg.lats) == len(best.lats) && cg.city < best.city) {
			best = cg
		}
	}
	return best
}

// dominantState expects states sorted, so the first of equally frequent
// states wins.
func dominantState(states []string, counts map[string]int) string {
	var best string
	bestCount := 0
	for _, state := range states {
		if n := counts[state]; n > bestCount {
			best, bestCount = state, n
		}
	}
	return best
}

// Median returns the 50th percentile of vals using linear interpolation
// between the two middle values for even-length input. vals is not modified.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// GeoIndex looks up resolved geolocation records by zip prefix.
type GeoIndex map[int]model.GeoRecord

// IndexGeo builds a GeoIndex from resolved records.
func IndexGeo(records []model.GeoRecord) GeoIndex {
	idx := make(GeoIndex, len(records))
	for _, r := range records {
		idx[r.ZipPrefix] = r
	}
	return idx
}

// Lookup resolves a textual zip prefix such as "01037" or "1037".
func (g GeoIndex) Lookup(zip string) (model.GeoRecord, bool) {
	n, ok := ParseZipPrefix(zip)
	if !ok {
		return model.GeoRecord{}, false
	}
	r, ok := g[n]
	return r, ok
}

// ParseZipPrefix parses a zip prefix, tolerating surrounding whitespace and
// leading zeros.
func ParseZipPrefix(zip string) (int, bool) {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return 0, false
	}
	n, err := strconv.Atoi(zip)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
