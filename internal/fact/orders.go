package fact

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/commerce-warehouse/internal/dim"
	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/nullable"
)

// Order statuses that mark an order as canceled or unavailable.
const (
	StatusCanceled    = "canceled"
	StatusUnavailable = "unavailable"
)

// OrphanOrderError reports orders whose customer_id resolves to no canonical
// customer. It indicates upstream data corruption and aborts the build.
type OrphanOrderError struct {
	OrderIDs []string
}

func (e *OrphanOrderError) Error() string {
	const maxListed = 10
	ids := e.OrderIDs
	suffix := ""
	if len(ids) > maxListed {
		ids = ids[:maxListed]
		suffix = fmt.Sprintf(" (and %d more)", len(e.OrderIDs)-maxListed)
	}
	return fmt.Sprintf("fact: %d orders reference unknown customers: %s%s",
		len(e.OrderIDs), strings.Join(ids, ", "), suffix)
}

// OrderInputs holds everything BuildOrders joins onto the raw orders.
type OrderInputs struct {
	Orders   []model.Order
	Identity dim.IdentityIndex
	Items    []model.OrderItemAggregate
	Payments []model.PaymentAggregate
	Reviews  []model.DedupedReview
}

// BuildOrders produces one OrderFact per raw order.
//
// The customer join is inner: every order must resolve to a customer
// identity, otherwise an *OrphanOrderError listing all offending orders is
// returned and no facts are produced. Item, payment and review joins are
// left joins; a missing aggregate leaves the derived metrics null.
func BuildOrders(in OrderInputs) ([]model.OrderFact, error) {
	items := make(map[string]*model.OrderItemAggregate, len(in.Items))
	for i := range in.Items {
		items[in.Items[i].OrderID] = &in.Items[i]
	}
	payments := make(map[string]*model.PaymentAggregate, len(in.Payments))
	for i := range in.Payments {
		payments[in.Payments[i].OrderID] = &in.Payments[i]
	}
	reviews := latestReviewByOrder(in.Reviews)

	var orphans []string
	out := make([]model.OrderFact, 0, len(in.Orders))
	for _, o := range in.Orders {
		customerID := strings.TrimSpace(o.CustomerID)
		uid, ok := in.Identity[customerID]
		if !ok {
			orphans = append(orphans, o.OrderID)
			continue
		}

		f := model.OrderFact{
			OrderID:             o.OrderID,
			CustomerID:          customerID,
			CustomerUniqueID:    uid,
			Status:              o.Status,
			PurchasedAt:         o.PurchasedAt,
			ApprovedAt:          o.ApprovedAt,
			DeliveredCarrierAt:  o.DeliveredCarrierAt,
			DeliveredCustomerAt: o.DeliveredCustomerAt,
			EstimatedDeliveryAt: o.EstimatedDeliveryAt,
			OrderDate:           nullable.TruncateDay(o.PurchasedAt),
		}

		if agg, ok := items[o.OrderID]; ok {
			f.ItemsCount = nullable.Ptr(agg.ItemsCount)
			f.SumValidPrice = nullable.Ptr(agg.SumValidPrice)
			f.SumValidFreight = nullable.Ptr(agg.SumValidFreight)
			f.PrimaryCategory = agg.PrimaryCategory
			f.OrderTotal = nullable.Ptr(agg.SumValidPrice + agg.SumValidFreight)
		}
		if agg, ok := payments[o.OrderID]; ok {
			f.SumValidPayments = nullable.Ptr(agg.SumValidPayments)
			f.PrimaryPaymentType = agg.PrimaryPaymentType
			f.MaxInstallments = agg.MaxInstallments
			f.PaymentRowCount = nullable.Ptr(agg.PaymentRowCount)
		}
		if r, ok := reviews[o.OrderID]; ok {
			f.ReviewScore = nullable.Ptr(r.Score)
			f.HasReview = true
		}

		f.DaysToDelivery = nullable.Days(o.PurchasedAt, o.DeliveredCustomerAt)
		f.CarrierToCustomerDays = nullable.Days(o.DeliveredCarrierAt, o.DeliveredCustomerAt)
		f.IsDelayed = nullable.AfterOrNil(o.DeliveredCustomerAt, o.EstimatedDeliveryAt)
		f.ChronologyFlag = ChronologyViolated(o)
		f.IsCanceledOrUnavailable = IsCanceledOrUnavailable(o.Status)
		f.PaymentCoverage = nullable.Div(f.SumValidPayments, f.OrderTotal)

		out = append(out, f)
	}

	if len(orphans) > 0 {
		sort.Strings(orphans)
		return nil, &OrphanOrderError{OrderIDs: orphans}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

// ChronologyViolated reports whether the order's lifecycle timestamps step
// backwards: purchase > approved, approved > delivered to carrier, or
// delivered to carrier > delivered to customer. A comparison involving a
// missing timestamp is never a violation.
func ChronologyViolated(o model.Order) bool {
	return nullable.After(o.PurchasedAt, o.ApprovedAt) ||
		nullable.After(o.ApprovedAt, o.DeliveredCarrierAt) ||
		nullable.After(o.DeliveredCarrierAt, o.DeliveredCustomerAt)
}

// IsCanceledOrUnavailable reports whether status is canceled or unavailable,
// ignoring case and surrounding whitespace.
func IsCanceledOrUnavailable(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusCanceled, StatusUnavailable:
		return true
	default:
		return false
	}
}

// latestReviewByOrder picks one review per order using the same ranking as
// review deduplication, then the smaller review_id.
func latestReviewByOrder(reviews []model.DedupedReview) map[string]model.DedupedReview {
	out := make(map[string]model.DedupedReview)
	for _, r := range reviews {
		cur, ok := out[r.OrderID]
		if !ok || dedupedRanksAbove(r, cur) {
			out[r.OrderID] = r
		}
	}
	return out
}

func dedupedRanksAbove(a, b model.DedupedReview) bool {
	ta := nullable.Coalesce(a.AnsweredAt, a.CreatedAt)
	tb := nullable.Coalesce(b.AnsweredAt, b.CreatedAt)
	if cmp := compareTimes(ta, tb); cmp != 0 {
		return cmp > 0
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ReviewID < b.ReviewID
}

// compareTimes orders nil below any timestamp.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
