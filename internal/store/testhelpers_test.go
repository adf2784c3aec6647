package store

import (
	"time"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// sampleWarehouse returns one row per table with a mix of null and set values.
func sampleWarehouse() *model.Warehouse {
	purchased := day("2018-01-01").Add(10 * time.Hour)
	return &model.Warehouse{
		Geolocation: []model.GeoRecord{
			{ZipPrefix: 1037, City: "sao paulo", Lat: -23.5, Lng: -46.6, States: model.StateSet{"RJ", "SP"}, SampleCount: 3, Ambiguous: true, DominantState: "SP"},
		},
		Customers: []model.CanonicalCustomer{
			{UniqueID: "U1", RepresentativeRawID: "C1", ZipPrefix: "01037", City: "sao paulo", State: "SP", Lat: ptr(-23.5), Lng: ptr(-46.6), RawIDVariantCount: 2},
		},
		Products: []model.CanonicalProduct{
			{ProductID: "p1", Category: "health_beauty", LengthCm: ptr(10.0), HeightCm: ptr(10.0), WidthCm: ptr(1.0), VolumeCm3: ptr(100.0), WeightInvalid: true},
		},
		Sellers: []model.CanonicalSeller{
			{SellerID: "s1", ZipPrefix: "99999", City: "x", State: "MG"},
		},
		Reviews: []model.DedupedReview{
			{ReviewID: "r1", OrderID: "o1", Score: 5, CommentMessage: ptr("ok"), CreatedAt: ptr(day("2018-01-07")), TextLength: 2, HasText: true, LowQuality: true, DuplicateCount: 2},
		},
		Items: []model.OrderItemAggregate{
			{OrderID: "o1", ItemsCount: 2, SumValidPrice: 150, SumValidFreight: 50, DistinctProducts: 1, DistinctSellers: 1, PrimaryCategory: ptr("health_beauty")},
		},
		Payments: []model.PaymentAggregate{
			{OrderID: "o1", SumValidPayments: 100, PrimaryPaymentType: ptr("credit_card"), MaxInstallments: ptr(3), PaymentRowCount: 1},
		},
		Orders: []model.OrderFact{
			{OrderID: "o1", CustomerID: "C1", CustomerUniqueID: "U1", Status: "delivered", PurchasedAt: &purchased,
				OrderDate: ptr(day("2018-01-01")), ItemsCount: ptr(2), OrderTotal: ptr(200.0), IsDelayed: ptr(false),
				PaymentCoverage: ptr(0.5), ReviewScore: ptr(5), HasReview: true},
		},
		CustomerRFM: []model.CustomerRFM{
			{CustomerUniqueID: "U1", LastOrderDate: day("2018-01-01"), RecencyDays: 289, Frequency: 1, Monetary: 200,
				RecencyScore: 2, FrequencyScore: 1, MonetaryScore: 2, Segment: "low_value_one_timers"},
		},
	}
}

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		RunID:        "run-1",
		SnapshotDate: "2018-10-17",
		StartedAt:    day("2018-10-17").Add(2 * time.Hour),
		TableCounts:  map[string]int{model.TableOrders: 1},
		Segments:     map[string]int{"low_value_one_timers": 1},
	}
}
