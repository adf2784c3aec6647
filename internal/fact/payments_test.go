package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

func ip(v int) *int { return &v }

func TestAggregatePayments(t *testing.T) {
	payments := []model.Payment{
		{OrderID: "o1", Sequential: 1, Type: "Voucher", Installments: ip(1), Value: f64(20)},
		{OrderID: "o1", Sequential: 2, Type: "credit_card", Installments: ip(8), Value: f64(80)},
		{OrderID: "o1", Sequential: 3, Type: "not_defined", Installments: nil, Value: f64(0)},
		{OrderID: "o2", Sequential: 1, Type: "BOLETO", Installments: ip(1), Value: nil},
	}

	got := AggregatePayments(payments)
	require.Len(t, got, 2)

	o1 := got[0]
	assert.Equal(t, "o1", o1.OrderID)
	assert.InDelta(t, 100.0, o1.SumValidPayments, 1e-9)
	require.NotNil(t, o1.PrimaryPaymentType)
	assert.Equal(t, "credit_card", *o1.PrimaryPaymentType)
	require.NotNil(t, o1.MaxInstallments)
	assert.Equal(t, 8, *o1.MaxInstallments)
	assert.Equal(t, 3, o1.PaymentRowCount)
	assert.Equal(t, 1, o1.InvalidPaymentRowCount)

	o2 := got[1]
	assert.InDelta(t, 0.0, o2.SumValidPayments, 1e-9)
	assert.Equal(t, "boleto", *o2.PrimaryPaymentType)
	assert.Equal(t, 1, o2.PaymentRowCount)
	assert.Equal(t, 1, o2.InvalidPaymentRowCount)
}

func TestAggregatePayments_CaseVariantsDoNotFragment(t *testing.T) {
	payments := []model.Payment{
		{OrderID: "o1", Type: "Voucher", Value: f64(1)},
		{OrderID: "o1", Type: "VOUCHER", Value: f64(1)},
		{OrderID: "o1", Type: "voucher", Value: f64(1)},
	}

	got := AggregatePayments(payments)
	require.Len(t, got, 1)
	assert.Equal(t, "voucher", *got[0].PrimaryPaymentType)
}

func TestAggregatePayments_NoTypeOrInstallments(t *testing.T) {
	got := AggregatePayments([]model.Payment{{OrderID: "o1", Value: f64(5)}})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].PrimaryPaymentType)
	assert.Nil(t, got[0].MaxInstallments)
}
