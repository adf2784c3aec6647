package pipeline

import (
	"github.com/sells-group/commerce-warehouse/internal/model"
)

// Summarize counts the rows and data-quality flags of a finished build.
func Summarize(snap *model.Snapshot, wh *model.Warehouse) *model.RunSummary {
	s := &model.RunSummary{
		RawCounts:   snap.RawCounts(),
		TableCounts: wh.Counts(),
		Segments:    make(map[string]int),
	}

	for _, g := range wh.Geolocation {
		if g.Ambiguous {
			s.AmbiguousZipPrefixes++
		}
	}
	for _, c := range wh.Customers {
		if c.RawIDVariantCount > 1 {
			s.MergedCustomerIDs += c.RawIDVariantCount - 1
		}
	}
	for _, sl := range wh.Sellers {
		if !sl.GeoMatched {
			s.UnmatchedSellerGeo++
		}
	}
	for _, p := range wh.Products {
		if p.WeightInvalid {
			s.InvalidWeightProducts++
		}
		if p.DimInvalid {
			s.InvalidDimensionProducts++
		}
		if p.CategoryMissingTranslation {
			s.MissingTranslationProducts++
		}
		if p.DensityOutlier {
			s.DensityOutlierProducts++
		}
	}

	s.DuplicateReviewsDropped = len(snap.Reviews) - len(wh.Reviews)
	for _, r := range wh.Reviews {
		if r.LowQuality {
			s.LowQualityReviews++
		}
	}
	for _, it := range wh.Items {
		s.InvalidPriceRows += it.InvalidPriceRows
		s.InvalidFreightRows += it.InvalidFreightRows
	}
	for _, p := range wh.Payments {
		s.InvalidPaymentRows += p.InvalidPaymentRowCount
	}

	for _, o := range wh.Orders {
		if o.ItemsCount == nil {
			s.OrdersWithoutItems++
		}
		if o.PaymentRowCount == nil {
			s.OrdersWithoutPayments++
		}
		if o.ChronologyFlag {
			s.ChronologyViolations++
		}
		if o.IsDelayed != nil && *o.IsDelayed {
			s.DelayedOrders++
		}
		if o.IsCanceledOrUnavailable {
			s.CanceledOrUnavailable++
		}
	}
	for _, c := range wh.CustomerRFM {
		s.Segments[c.Segment]++
	}
	return s
}
