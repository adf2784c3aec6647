package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commerce-warehouse/internal/fact"
	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/rfm"
)

type staticSource struct {
	snap *model.Snapshot
	err  error
}

func (s staticSource) Load(context.Context) (*model.Snapshot, error) {
	return s.snap, s.err
}

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func num(v float64) *float64 { return &v }

var snapshotDate = time.Date(2018, 10, 17, 0, 0, 0, 0, time.UTC)

func fixtureSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Geolocation: []model.GeoSample{
			{ZipPrefix: 1037, City: "São Paulo", State: "SP", Lat: -23.54, Lng: -46.63},
			{ZipPrefix: 1037, City: "sao paulo", State: "SP", Lat: -23.55, Lng: -46.64},
			{ZipPrefix: 20000, City: "rio", State: "RJ", Lat: -22.9, Lng: -43.2},
			{ZipPrefix: 20000, City: "rio", State: "SP", Lat: -22.9, Lng: -43.2},
		},
		Customers: []model.Customer{
			{CustomerID: "C2", CustomerUniqueID: "U1", ZipPrefix: "01037", City: "sao paulo", State: "SP"},
			{CustomerID: "C1", CustomerUniqueID: "U1", ZipPrefix: "01037", City: "sao paulo", State: "SP"},
			{CustomerID: "C3", CustomerUniqueID: "U2", ZipPrefix: "99999", City: "x", State: "MG"},
		},
		Orders: []model.Order{
			{OrderID: "o1", CustomerID: "C1", Status: "delivered", PurchasedAt: at("2018-10-01 10:00:00"),
				DeliveredCustomerAt: at("2018-10-05 10:00:00"), EstimatedDeliveryAt: at("2018-10-04 00:00:00")},
			{OrderID: "o2", CustomerID: "C2", Status: "delivered", PurchasedAt: at("2018-09-01 10:00:00")},
			{OrderID: "o3", CustomerID: "C3", Status: "canceled", PurchasedAt: at("2018-08-01 10:00:00")},
		},
		OrderItems: []model.OrderItem{
			{OrderID: "o1", ItemSeq: 1, ProductID: "p1", SellerID: "s1", Price: num(300), Freight: num(20)},
			{OrderID: "o1", ItemSeq: 2, ProductID: "p1", SellerID: "s1", Price: num(-1), Freight: num(5)},
		},
		Payments: []model.Payment{
			{OrderID: "o1", Sequential: 1, Type: "credit_card", Value: num(320)},
			{OrderID: "o1", Sequential: 2, Type: "voucher", Value: num(0)},
		},
		Reviews: []model.Review{
			{ReviewID: "r1", OrderID: "o1", Score: 3, CreatedAt: at("2018-10-06 00:00:00")},
			{ReviewID: "r1", OrderID: "o1", Score: 5, CreatedAt: at("2018-10-07 00:00:00")},
		},
		Products: []model.Product{
			{ProductID: "p1", Category: strPtr("beleza_saude"), WeightG: num(0), LengthCm: num(10), HeightCm: num(10), WidthCm: num(1)},
		},
		Sellers: []model.Seller{
			{SellerID: "s1", ZipPrefix: "01037", City: "sao paulo", State: "SP"},
			{SellerID: "s2", ZipPrefix: "55555", City: "y", State: "PE"},
		},
		Translations: []model.CategoryTranslation{{Category: "beleza_saude", CategoryEnglish: "health_beauty"}},
	}
}

func strPtr(s string) *string { return &s }

func TestRun_BuildsAllTables(t *testing.T) {
	wh, summary, err := Run(context.Background(), staticSource{snap: fixtureSnapshot()}, Options{
		SnapshotDate:            snapshotDate,
		DensityOutlierThreshold: 10,
		Concurrency:             4,
	})
	require.NoError(t, err)

	assert.Len(t, wh.Geolocation, 2)
	require.Len(t, wh.Customers, 2)
	assert.Equal(t, "C1", wh.Customers[0].RepresentativeRawID)
	assert.Equal(t, 2, wh.Customers[0].RawIDVariantCount)
	require.NotNil(t, wh.Customers[0].Lat)

	require.Len(t, wh.Products, 1)
	assert.True(t, wh.Products[0].WeightInvalid)
	assert.Nil(t, wh.Products[0].Density)

	require.Len(t, wh.Sellers, 2)
	assert.True(t, wh.Sellers[0].GeoMatched)
	assert.False(t, wh.Sellers[1].GeoMatched)

	require.Len(t, wh.Reviews, 1)
	assert.Equal(t, 5, wh.Reviews[0].Score)

	require.Len(t, wh.Orders, 3)
	o1 := wh.Orders[0]
	assert.Equal(t, "U1", o1.CustomerUniqueID)
	require.NotNil(t, o1.OrderTotal)
	assert.InDelta(t, 325.0, *o1.OrderTotal, 1e-9)
	require.NotNil(t, o1.IsDelayed)
	assert.True(t, *o1.IsDelayed)
	assert.Nil(t, wh.Orders[1].OrderTotal)
	assert.True(t, wh.Orders[2].IsCanceledOrUnavailable)

	require.Len(t, wh.CustomerRFM, 1)
	u1 := wh.CustomerRFM[0]
	assert.Equal(t, "U1", u1.CustomerUniqueID)
	assert.Equal(t, 2, u1.Frequency)
	assert.Equal(t, 16, u1.RecencyDays)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "2018-10-17", summary.SnapshotDate)
	assert.Equal(t, 1, summary.AmbiguousZipPrefixes)
	assert.Equal(t, 1, summary.MergedCustomerIDs)
	assert.Equal(t, 1, summary.UnmatchedSellerGeo)
	assert.Equal(t, 1, summary.InvalidWeightProducts)
	assert.Equal(t, 1, summary.DuplicateReviewsDropped)
	assert.Equal(t, 1, summary.InvalidPriceRows)
	assert.Equal(t, 1, summary.InvalidPaymentRows)
	assert.Equal(t, 2, summary.OrdersWithoutItems)
	assert.Equal(t, 2, summary.OrdersWithoutPayments)
	assert.Equal(t, 1, summary.DelayedOrders)
	assert.Equal(t, 1, summary.CanceledOrUnavailable)
	assert.Equal(t, 3, summary.TableCounts[model.TableOrders])
	assert.Equal(t, 1, summary.Segments[u1.Segment])
}

func TestRun_Deterministic(t *testing.T) {
	opts := Options{SnapshotDate: snapshotDate, DensityOutlierThreshold: 10, Concurrency: 1}
	first, _, err := Run(context.Background(), staticSource{snap: fixtureSnapshot()}, opts)
	require.NoError(t, err)

	opts.Concurrency = 8
	second, _, err := Run(context.Background(), staticSource{snap: fixtureSnapshot()}, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_IndependentOfInputOrder(t *testing.T) {
	opts := Options{SnapshotDate: snapshotDate, DensityOutlierThreshold: 10, Concurrency: 2}
	first, _, err := Run(context.Background(), staticSource{snap: fixtureSnapshot()}, opts)
	require.NoError(t, err)

	snap := fixtureSnapshot()
	slices.Reverse(snap.Geolocation)
	slices.Reverse(snap.Customers)
	slices.Reverse(snap.Orders)
	slices.Reverse(snap.OrderItems)
	slices.Reverse(snap.Payments)
	slices.Reverse(snap.Reviews)
	slices.Reverse(snap.Sellers)
	second, _, err := Run(context.Background(), staticSource{snap: snap}, opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_PaddedCustomerIDResolves(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Customers = append(snap.Customers, model.Customer{CustomerID: "c9 ", CustomerUniqueID: "U9"})
	snap.Orders = append(snap.Orders, model.Order{OrderID: "o9", CustomerID: "c9 ", Status: "delivered", PurchasedAt: at("2018-10-10 00:00:00")})

	wh, _, err := Run(context.Background(), staticSource{snap: snap}, Options{SnapshotDate: snapshotDate, DensityOutlierThreshold: 10, Concurrency: 2})
	require.NoError(t, err)

	idx := slices.IndexFunc(wh.Orders, func(o model.OrderFact) bool { return o.OrderID == "o9" })
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "U9", wh.Orders[idx].CustomerUniqueID)
	assert.Equal(t, "c9", wh.Orders[idx].CustomerID)
}

func TestRun_OrphanOrderIsFatal(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Orders = append(snap.Orders, model.Order{OrderID: "o9", CustomerID: "ghost", PurchasedAt: at("2018-01-01 00:00:00")})

	wh, _, err := Run(context.Background(), staticSource{snap: snap}, Options{SnapshotDate: snapshotDate, Concurrency: 2})
	require.Error(t, err)
	assert.Nil(t, wh)

	var orphan *fact.OrphanOrderError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, []string{"o9"}, orphan.OrderIDs)
}

func TestRun_RequiresSnapshotDate(t *testing.T) {
	_, _, err := Run(context.Background(), staticSource{snap: fixtureSnapshot()}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot date is required")
}

func TestRun_SourceError(t *testing.T) {
	_, _, err := Run(context.Background(), staticSource{err: errors.New("disk gone")}, Options{SnapshotDate: snapshotDate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load snapshot")
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Build(ctx, fixtureSnapshot(), Options{SnapshotDate: snapshotDate, Concurrency: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_SegmentsCoverEveryCustomer(t *testing.T) {
	wh := &model.Warehouse{CustomerRFM: []model.CustomerRFM{
		{CustomerUniqueID: "a", Segment: rfm.SegmentLoyal},
		{CustomerUniqueID: "b", Segment: rfm.SegmentLoyal},
		{CustomerUniqueID: "c", Segment: rfm.SegmentOthers},
	}}
	s := Summarize(&model.Snapshot{}, wh)
	assert.Equal(t, map[string]int{rfm.SegmentLoyal: 2, rfm.SegmentOthers: 1}, s.Segments)
}
