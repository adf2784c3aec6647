package fact

import (
	"sort"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
)

type itemGroup struct {
	agg      model.OrderItemAggregate
	products map[string]struct{}
	sellers  map[string]struct{}
}

// AggregateItems rolls order line items up to one row per order.
//
// A price or freight value that is null or not positive is invalid: it adds
// nothing to the sums and increments the matching invalid counter, while the
// row still counts toward items_count. The primary category is the
// alphabetically smallest category among the order's products; items whose
// product is unknown contribute no category.
func AggregateItems(items []model.OrderItem, products []model.CanonicalProduct) []model.OrderItemAggregate {
	categories := make(map[string]string, len(products))
	for _, p := range products {
		categories[p.ProductID] = p.Category
	}

	groups := make(map[string]*itemGroup)
	for _, it := range items {
		g, ok := groups[it.OrderID]
		if !ok {
			g = &itemGroup{
				agg:      model.OrderItemAggregate{OrderID: it.OrderID},
				products: make(map[string]struct{}),
				sellers:  make(map[string]struct{}),
			}
			groups[it.OrderID] = g
		}

		g.agg.ItemsCount++
		if price := nullable.Positive(it.Price); price != nil {
			g.agg.SumValidPrice += *price
		} else {
			g.agg.InvalidPriceRows++
		}
		if freight := nullable.Positive(it.Freight); freight != nil {
			g.agg.SumValidFreight += *freight
		} else {
			g.agg.InvalidFreightRows++
		}

		if it.ProductID != "" {
			g.products[it.ProductID] = struct{}{}
		}
		if it.SellerID != "" {
			g.sellers[it.SellerID] = struct{}{}
		}
		g.agg.EarliestShippingLimit = nullable.MinTime(g.agg.EarliestShippingLimit, it.ShippingLimitAt)

		if cat, ok := categories[it.ProductID]; ok {
			if g.agg.PrimaryCategory == nil || cat < *g.agg.PrimaryCategory {
				g.agg.PrimaryCategory = nullable.Ptr(cat)
			}
		}
	}

	out := make([]model.OrderItemAggregate, 0, len(groups))
	for _, g := range groups {
		g.agg.DistinctProducts = len(g.products)
		g.agg.DistinctSellers = len(g.sellers)
		out = append(out, g.agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
