package fact

import (
	"sort"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
	"github.com/sells-group/commerce-warehouse/internal/textnorm"
)

// AggregatePayments rolls payment rows up to one row per order.
//
// Only payment values that are present and positive are summed; every row
// counts toward payment_row_count and invalid rows also toward
// invalid_payment_row_count. Payment types are lower-cased before the
// lexicographically smallest one is picked as primary.
func AggregatePayments(payments []model.Payment) []model.PaymentAggregate {
	groups := make(map[string]*model.PaymentAggregate)
	for _, p := range payments {
		agg, ok := groups[p.OrderID]
		if !ok {
			agg = &model.PaymentAggregate{OrderID: p.OrderID}
			groups[p.OrderID] = agg
		}

		agg.PaymentRowCount++
		if v := nullable.Positive(p.Value); v != nil {
			agg.SumValidPayments += *v
		} else {
			agg.InvalidPaymentRowCount++
		}

		if pt := textnorm.PaymentType(p.Type); pt != "" {
			if agg.PrimaryPaymentType == nil || pt < *agg.PrimaryPaymentType {
				agg.PrimaryPaymentType = nullable.Ptr(pt)
			}
		}
		if p.Installments != nil {
			if agg.MaxInstallments == nil || *p.Installments > *agg.MaxInstallments {
				agg.MaxInstallments = nullable.Ptr(*p.Installments)
			}
		}
	}

	out := make([]model.PaymentAggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}
