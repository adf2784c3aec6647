package fact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commerce-warehouse/internal/dim"
	"github.com/sells-group/commerce-warehouse/internal/model"
)

func deliveredOrder(id, customer string) model.Order {
	return model.Order{
		OrderID:             id,
		CustomerID:          customer,
		Status:              "delivered",
		PurchasedAt:         ts("2018-01-01 10:30:00"),
		ApprovedAt:          ts("2018-01-01 11:00:00"),
		DeliveredCarrierAt:  ts("2018-01-03 10:30:00"),
		DeliveredCustomerAt: ts("2018-01-06 22:30:00"),
		EstimatedDeliveryAt: ts("2018-01-10 00:00:00"),
	}
}

func TestBuildOrders_FullJoin(t *testing.T) {
	in := OrderInputs{
		Orders:   []model.Order{deliveredOrder("o1", "C1")},
		Identity: dim.IdentityIndex{"C1": "U1"},
		Items: []model.OrderItemAggregate{
			{OrderID: "o1", ItemsCount: 2, SumValidPrice: 150, SumValidFreight: 50, PrimaryCategory: str("toys")},
		},
		Payments: []model.PaymentAggregate{
			{OrderID: "o1", SumValidPayments: 100, PrimaryPaymentType: str("credit_card"), PaymentRowCount: 1},
		},
		Reviews: []model.DedupedReview{
			{ReviewID: "r1", OrderID: "o1", Score: 4, CreatedAt: ts("2018-01-07 00:00:00")},
		},
	}

	got, err := BuildOrders(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	f := got[0]

	assert.Equal(t, "U1", f.CustomerUniqueID)
	assert.Equal(t, ts("2018-01-01 00:00:00"), f.OrderDate)
	require.NotNil(t, f.OrderTotal)
	assert.InDelta(t, 200.0, *f.OrderTotal, 1e-9)
	require.NotNil(t, f.PaymentCoverage)
	assert.InDelta(t, 0.5, *f.PaymentCoverage, 1e-9)
	require.NotNil(t, f.DaysToDelivery)
	assert.InDelta(t, 5.5, *f.DaysToDelivery, 1e-9)
	require.NotNil(t, f.CarrierToCustomerDays)
	assert.InDelta(t, 3.5, *f.CarrierToCustomerDays, 1e-9)
	require.NotNil(t, f.IsDelayed)
	assert.False(t, *f.IsDelayed)
	assert.False(t, f.ChronologyFlag)
	assert.False(t, f.IsCanceledOrUnavailable)
	assert.Equal(t, "toys", *f.PrimaryCategory)
	assert.Equal(t, "credit_card", *f.PrimaryPaymentType)
	assert.True(t, f.HasReview)
	assert.Equal(t, 4, *f.ReviewScore)
}

func TestBuildOrders_MissingAggregatesDegradeToNull(t *testing.T) {
	o := model.Order{OrderID: "o1", CustomerID: "C1", Status: "created", PurchasedAt: ts("2018-01-01 10:00:00")}

	got, err := BuildOrders(OrderInputs{
		Orders:   []model.Order{o},
		Identity: dim.IdentityIndex{"C1": "U1"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	f := got[0]

	assert.Nil(t, f.ItemsCount)
	assert.Nil(t, f.OrderTotal)
	assert.Nil(t, f.SumValidPayments)
	assert.Nil(t, f.PaymentCoverage)
	assert.Nil(t, f.DaysToDelivery)
	assert.Nil(t, f.CarrierToCustomerDays)
	assert.Nil(t, f.IsDelayed)
	assert.False(t, f.ChronologyFlag)
	assert.False(t, f.HasReview)
	assert.Nil(t, f.ReviewScore)
}

func TestBuildOrders_ZeroTotalGivesNullCoverage(t *testing.T) {
	got, err := BuildOrders(OrderInputs{
		Orders:   []model.Order{deliveredOrder("o1", "C1")},
		Identity: dim.IdentityIndex{"C1": "U1"},
		Items:    []model.OrderItemAggregate{{OrderID: "o1", ItemsCount: 1}},
		Payments: []model.PaymentAggregate{{OrderID: "o1", SumValidPayments: 30, PaymentRowCount: 1}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].OrderTotal)
	assert.Equal(t, 0.0, *got[0].OrderTotal)
	assert.Nil(t, got[0].PaymentCoverage)
}

func TestBuildOrders_OrphanCustomerIsFatal(t *testing.T) {
	_, err := BuildOrders(OrderInputs{
		Orders: []model.Order{
			deliveredOrder("o2", "missing"),
			deliveredOrder("o1", "C1"),
			deliveredOrder("o0", "also-missing"),
		},
		Identity: dim.IdentityIndex{"C1": "U1"},
	})
	require.Error(t, err)

	var orphan *OrphanOrderError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, []string{"o0", "o2"}, orphan.OrderIDs)
	assert.Contains(t, err.Error(), "2 orders reference unknown customers")
}

func TestBuildOrders_TrimsCustomerID(t *testing.T) {
	identity := dim.BuildIdentityIndex([]model.Customer{{CustomerID: "C1 ", CustomerUniqueID: "U1"}})

	got, err := BuildOrders(OrderInputs{
		Orders:   []model.Order{deliveredOrder("o1", "C1 ")},
		Identity: identity,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C1", got[0].CustomerID)
	assert.Equal(t, "U1", got[0].CustomerUniqueID)
}

func TestOrphanOrderError_TruncatesList(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	err := &OrphanOrderError{OrderIDs: ids}
	assert.Contains(t, err.Error(), "(and 2 more)")
}

func TestBuildOrders_OnePerOrderSorted(t *testing.T) {
	got, err := BuildOrders(OrderInputs{
		Orders:   []model.Order{deliveredOrder("b", "C1"), deliveredOrder("a", "C2")},
		Identity: dim.IdentityIndex{"C1": "U1", "C2": "U1"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].OrderID)
	assert.Equal(t, "U1", got[1].CustomerUniqueID)
}

func TestBuildOrders_Delayed(t *testing.T) {
	o := deliveredOrder("o1", "C1")
	o.DeliveredCustomerAt = ts("2018-01-12 00:00:00")

	got, err := BuildOrders(OrderInputs{Orders: []model.Order{o}, Identity: dim.IdentityIndex{"C1": "U1"}})
	require.NoError(t, err)
	require.NotNil(t, got[0].IsDelayed)
	assert.True(t, *got[0].IsDelayed)
}

func TestChronologyViolated(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Order)
		want   bool
	}{
		{"monotonic", func(*model.Order) {}, false},
		{"approved before purchase", func(o *model.Order) { o.ApprovedAt = ts("2017-12-31 00:00:00") }, true},
		{"carrier before approval", func(o *model.Order) { o.DeliveredCarrierAt = ts("2018-01-01 10:45:00") }, true},
		{"customer before carrier", func(o *model.Order) { o.DeliveredCustomerAt = ts("2018-01-02 00:00:00") }, true},
		{"missing approval is not a violation", func(o *model.Order) { o.ApprovedAt = nil }, false},
		{"missing approval hides purchase vs carrier", func(o *model.Order) {
			o.ApprovedAt = nil
			o.DeliveredCarrierAt = ts("2017-01-01 00:00:00")
			o.DeliveredCustomerAt = nil
		}, false},
		{"all missing", func(o *model.Order) {
			o.PurchasedAt, o.ApprovedAt, o.DeliveredCarrierAt, o.DeliveredCustomerAt = nil, nil, nil, nil
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := deliveredOrder("o1", "C1")
			tt.mutate(&o)
			assert.Equal(t, tt.want, ChronologyViolated(o))
		})
	}
}

func TestIsCanceledOrUnavailable(t *testing.T) {
	assert.True(t, IsCanceledOrUnavailable("canceled"))
	assert.True(t, IsCanceledOrUnavailable(" Unavailable "))
	assert.False(t, IsCanceledOrUnavailable("delivered"))
	assert.False(t, IsCanceledOrUnavailable(""))
}

func TestBuildOrders_LatestReviewPerOrder(t *testing.T) {
	got, err := BuildOrders(OrderInputs{
		Orders:   []model.Order{deliveredOrder("o1", "C1")},
		Identity: dim.IdentityIndex{"C1": "U1"},
		Reviews: []model.DedupedReview{
			{ReviewID: "r1", OrderID: "o1", Score: 5, CreatedAt: ts("2018-01-07 00:00:00")},
			{ReviewID: "r2", OrderID: "o1", Score: 1, CreatedAt: ts("2018-01-08 00:00:00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, *got[0].ReviewScore)
}
