package dim

import (
	"sort"
	"strings"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
	"github.com/sells-group/commerce-warehouse/internal/textnorm"
)

// CanonicalizeCustomers collapses raw customer records sharing a
// customer_unique_id into one record per person.
//
// The representative raw id is the smallest customer_id of the group. Zip,
// city and state are each the first non-empty value when the group's records
// are ordered by customer_id, so the result does not depend on input order;
// other values are discarded. geo may be nil, in which case lat/lng stay null.
// Records without a unique id are skipped.
func CanonicalizeCustomers(rows []model.Customer, geo GeoIndex) []model.CanonicalCustomer {
	groups := make(map[string][]model.Customer)
	for _, r := range rows {
		uid := strings.TrimSpace(r.CustomerUniqueID)
		id := strings.TrimSpace(r.CustomerID)
		if uid == "" || id == "" {
			continue
		}
		groups[uid] = append(groups[uid], model.Customer{
			CustomerID:       id,
			CustomerUniqueID: uid,
			ZipPrefix:        strings.TrimSpace(r.ZipPrefix),
			City:             textnorm.Normalize(r.City),
			State:            textnorm.State(r.State),
		})
	}

	out := make([]model.CanonicalCustomer, 0, len(groups))
	for uid, group := range groups {
		sort.Slice(group, func(i, j int) bool { return customerLess(group[i], group[j]) })

		c := model.CanonicalCustomer{
			UniqueID:            uid,
			RepresentativeRawID: group[0].CustomerID,
		}
		seen := make(map[string]struct{}, len(group))
		for _, r := range group {
			seen[r.CustomerID] = struct{}{}
			if c.ZipPrefix == "" {
				c.ZipPrefix = r.ZipPrefix
			}
			if c.City == "" {
				c.City = r.City
			}
			if c.State == "" {
				c.State = r.State
			}
		}
		c.RawIDVariantCount = len(seen)

		if rec, ok := geo.Lookup(c.ZipPrefix); ok {
			c.Lat = nullable.Ptr(rec.Lat)
			c.Lng = nullable.Ptr(rec.Lng)
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID < out[j].UniqueID })
	return out
}

// customerLess orders by customer_id, then by location so duplicate raw ids
// with different locations still resolve the same way on every run.
func customerLess(a, b model.Customer) bool {
	if a.CustomerID != b.CustomerID {
		return a.CustomerID < b.CustomerID
	}
	if a.ZipPrefix != b.ZipPrefix {
		return a.ZipPrefix < b.ZipPrefix
	}
	if a.City != b.City {
		return a.City < b.City
	}
	return a.State < b.State
}

// IdentityIndex maps every raw customer_id to its customer_unique_id.
type IdentityIndex map[string]string

// BuildIdentityIndex indexes raw customer records by customer_id. Records
// without both ids are skipped, so their orders fail to resolve downstream.
func BuildIdentityIndex(rows []model.Customer) IdentityIndex {
	idx := make(IdentityIndex, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.CustomerID)
		uid := strings.TrimSpace(r.CustomerUniqueID)
		if id == "" || uid == "" {
			continue
		}
		idx[id] = uid
	}
	return idx
}
