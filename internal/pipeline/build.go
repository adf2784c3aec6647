// Package pipeline orchestrates a warehouse build: it loads the raw
// snapshot and runs the dimension, fact and RFM stages in dependency order.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/commerce-warehouse/internal/dim"
	"github.com/sells-group/commerce-warehouse/internal/fact"
	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/rfm"
	"github.com/sells-group/commerce-warehouse/internal/source"
)

// Options configures a build.
type Options struct {
	// SnapshotDate is the reference date for recency. Required.
	SnapshotDate            time.Time
	DensityOutlierThreshold float64
	Concurrency             int
}

// Run loads the snapshot from src and derives all warehouse tables.
func Run(ctx context.Context, src source.Source, opts Options) (*model.Warehouse, *model.RunSummary, error) {
	if opts.SnapshotDate.IsZero() {
		return nil, nil, eris.New("pipeline: snapshot date is required")
	}

	started := time.Now()
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: load snapshot")
	}

	wh, summary, err := Build(ctx, snap, opts)
	if err != nil {
		return nil, nil, err
	}
	summary.StartedAt = started.UTC()
	summary.Elapsed = time.Since(started)
	return wh, summary, nil
}

// Build derives all warehouse tables from an in-memory snapshot. Stages
// within a level run concurrently; a level finishes before the next starts.
func Build(ctx context.Context, snap *model.Snapshot, opts Options) (*model.Warehouse, *model.RunSummary, error) {
	if opts.SnapshotDate.IsZero() {
		return nil, nil, eris.New("pipeline: snapshot date is required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("snapshot_date", opts.SnapshotDate.Format("2006-01-02")),
	)
	log.Info("pipeline: starting build", zap.Any("raw_rows", snap.RawCounts()))

	wh := &model.Warehouse{}
	var (
		geoIndex dim.GeoIndex
		identity dim.IdentityIndex
	)

	levels := [][]stage{
		{
			{"geolocation", func() int {
				wh.Geolocation = dim.ResolveGeo(snap.Geolocation)
				geoIndex = dim.IndexGeo(wh.Geolocation)
				return len(wh.Geolocation)
			}},
			{"products", func() int {
				wh.Products = dim.NormalizeProducts(snap.Products, snap.Translations, opts.DensityOutlierThreshold)
				return len(wh.Products)
			}},
			{"reviews", func() int {
				wh.Reviews = fact.DedupeReviews(snap.Reviews)
				return len(wh.Reviews)
			}},
			{"payments", func() int {
				wh.Payments = fact.AggregatePayments(snap.Payments)
				return len(wh.Payments)
			}},
			{"identity", func() int {
				identity = dim.BuildIdentityIndex(snap.Customers)
				return len(identity)
			}},
		},
		{
			{"customers", func() int {
				wh.Customers = dim.CanonicalizeCustomers(snap.Customers, geoIndex)
				return len(wh.Customers)
			}},
			{"sellers", func() int {
				wh.Sellers = dim.ResolveSellers(snap.Sellers, geoIndex)
				return len(wh.Sellers)
			}},
			{"items", func() int {
				wh.Items = fact.AggregateItems(snap.OrderItems, wh.Products)
				return len(wh.Items)
			}},
		},
	}

	for i, level := range levels {
		if err := runLevel(ctx, log, opts.Concurrency, level); err != nil {
			return nil, nil, eris.Wrapf(err, "pipeline: level %d", i+1)
		}
	}

	start := time.Now()
	orders, err := fact.BuildOrders(fact.OrderInputs{
		Orders:   snap.Orders,
		Identity: identity,
		Items:    wh.Items,
		Payments: wh.Payments,
		Reviews:  wh.Reviews,
	})
	if err != nil {
		log.Error("pipeline: stage failed", zap.String("stage", "orders"), zap.Error(err))
		return nil, nil, err
	}
	wh.Orders = orders
	logStage(log, "orders", len(orders), start)

	start = time.Now()
	wh.CustomerRFM = rfm.Compute(wh.Orders, opts.SnapshotDate)
	logStage(log, "customer_rfm", len(wh.CustomerRFM), start)

	summary := Summarize(snap, wh)
	summary.RunID = runID
	summary.SnapshotDate = opts.SnapshotDate.Format("2006-01-02")

	log.Info("pipeline: build complete", zap.Any("tables", summary.TableCounts))
	return wh, summary, nil
}

type stage struct {
	name string
	run  func() int
}

func runLevel(ctx context.Context, log *zap.Logger, limit int, stages []stage) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, s := range stages {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrapf(err, "pipeline: %s cancelled", s.name)
			}
			start := time.Now()
			rows := s.run()
			logStage(log, s.name, rows, start)
			return nil
		})
	}
	return g.Wait()
}

func logStage(log *zap.Logger, name string, rows int, start time.Time) {
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int("rows", rows),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}
