package dim

import (
	"sort"
	"strings"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
	"github.com/sells-group/commerce-warehouse/internal/textnorm"
)

// ResolveSellers joins each seller to the geolocation record of its zip
// prefix. Sellers without a matching prefix keep null coordinates.
func ResolveSellers(rows []model.Seller, geo GeoIndex) []model.CanonicalSeller {
	out := make([]model.CanonicalSeller, 0, len(rows))
	for _, r := range rows {
		s := model.CanonicalSeller{
			SellerID:  strings.TrimSpace(r.SellerID),
			ZipPrefix: strings.TrimSpace(r.ZipPrefix),
			City:      textnorm.Normalize(r.City),
			State:     textnorm.State(r.State),
		}
		if rec, ok := geo.Lookup(s.ZipPrefix); ok {
			s.Lat = nullable.Ptr(rec.Lat)
			s.Lng = nullable.Ptr(rec.Lng)
			s.GeoMatched = true
			s.GeoAmbiguous = rec.Ambiguous
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out
}
