// Package rfm scores customers on recency, frequency and monetary value and
// assigns each one a segment from a fixed, priority-ordered rule list.
package rfm

import (
	"sort"
	"time"

	"github.com/sells-group/commerce-warehouse/internal/fact"
	"github.com/sells-group/commerce-warehouse/internal/model"
)

// Scores holds the three 1..5 scores of a customer.
type Scores struct {
	Recency   int
	Frequency int
	Monetary  int
}

// RecencyScore bins days since the last order: ≤30→5, ≤90→4, ≤180→3, ≤365→2, else 1.
func RecencyScore(days int) int {
	switch {
	case days <= 30:
		return 5
	case days <= 90:
		return 4
	case days <= 180:
		return 3
	case days <= 365:
		return 2
	default:
		return 1
	}
}

// FrequencyScore bins distinct order counts: 1→1, 2→2, ≤4→3, ≤8→4, else 5.
func FrequencyScore(orders int) int {
	switch {
	case orders <= 1:
		return 1
	case orders == 2:
		return 2
	case orders <= 4:
		return 3
	case orders <= 8:
		return 4
	default:
		return 5
	}
}

// MonetaryScore bins total spend: ≤50→1, ≤200→2, ≤500→3, ≤1000→4, else 5.
func MonetaryScore(total float64) int {
	switch {
	case total <= 50:
		return 1
	case total <= 200:
		return 2
	case total <= 500:
		return 3
	case total <= 1000:
		return 4
	default:
		return 5
	}
}

type customerAcc struct {
	last     time.Time
	orders   map[string]struct{}
	monetary float64
}

// Compute derives one CustomerRFM row per customer from the order facts.
//
// Canceled or unavailable orders, orders without a customer identity and
// orders without an order date are excluded. Recency is measured in whole
// days from the latest order date to snapshot, which must be supplied by the
// caller; it is never read from the clock. Null order totals add nothing to
// the monetary value. Output is ordered by customer_unique_id.
func Compute(orders []model.OrderFact, snapshot time.Time) []model.CustomerRFM {
	snapshot = truncateDay(snapshot)

	customers := make(map[string]*customerAcc)
	for _, o := range orders {
		if o.IsCanceledOrUnavailable || fact.IsCanceledOrUnavailable(o.Status) {
			continue
		}
		if o.CustomerUniqueID == "" || o.OrderDate == nil {
			continue
		}

		c, ok := customers[o.CustomerUniqueID]
		if !ok {
			c = &customerAcc{orders: make(map[string]struct{})}
			customers[o.CustomerUniqueID] = c
		}
		if _, seen := c.orders[o.OrderID]; seen {
			continue
		}
		c.orders[o.OrderID] = struct{}{}
		if o.OrderDate.After(c.last) {
			c.last = *o.OrderDate
		}
		if o.OrderTotal != nil {
			c.monetary += *o.OrderTotal
		}
	}

	out := make([]model.CustomerRFM, 0, len(customers))
	for uid, c := range customers {
		days := int(snapshot.Sub(truncateDay(c.last)).Hours() / 24)
		scores := Scores{
			Recency:   RecencyScore(days),
			Frequency: FrequencyScore(len(c.orders)),
			Monetary:  MonetaryScore(c.monetary),
		}
		out = append(out, model.CustomerRFM{
			CustomerUniqueID: uid,
			LastOrderDate:    c.last,
			RecencyDays:      days,
			Frequency:        len(c.orders),
			Monetary:         c.monetary,
			RecencyScore:     scores.Recency,
			FrequencyScore:   scores.Frequency,
			MonetaryScore:    scores.Monetary,
			Segment:          Segment(scores),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CustomerUniqueID < out[j].CustomerUniqueID })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
