package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

func newTestSQLiteSink(t *testing.T) *SQLiteSink {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteSink(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_WriteAllTables(t *testing.T) {
	st := newTestSQLiteSink(t)
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, sampleWarehouse(), sampleSummary()))

	for _, tbl := range Tables {
		assert.Equal(t, 1, countRows(t, st.db, tbl.Name), tbl.Name)
	}

	var (
		states    string
		ambiguous int
	)
	require.NoError(t, st.db.QueryRow(`SELECT states, ambiguous FROM dim_geolocation`).Scan(&states, &ambiguous))
	assert.Equal(t, "RJ|SP", states)
	assert.Equal(t, 1, ambiguous)

	var (
		density   sql.NullFloat64
		volume    sql.NullFloat64
		weightBad int
	)
	require.NoError(t, st.db.QueryRow(`SELECT density, volume_cm3, weight_invalid FROM dim_products`).Scan(&density, &volume, &weightBad))
	assert.False(t, density.Valid)
	assert.True(t, volume.Valid)
	assert.InDelta(t, 100.0, volume.Float64, 1e-9)
	assert.Equal(t, 1, weightBad)

	var (
		purchased string
		delayed   sql.NullInt64
		coverage  sql.NullFloat64
		approved  sql.NullString
	)
	require.NoError(t, st.db.QueryRow(
		`SELECT purchased_at, is_delayed, payment_coverage, approved_at FROM orders_clean WHERE order_id = 'o1'`,
	).Scan(&purchased, &delayed, &coverage, &approved))
	assert.Equal(t, "2018-01-01 10:00:00", purchased)
	assert.True(t, delayed.Valid)
	assert.Equal(t, int64(0), delayed.Int64)
	assert.InDelta(t, 0.5, coverage.Float64, 1e-9)
	assert.False(t, approved.Valid)
}

func TestSQLite_WriteReplacesPreviousBuild(t *testing.T) {
	st := newTestSQLiteSink(t)
	ctx := context.Background()

	wh := sampleWarehouse()
	require.NoError(t, st.Write(ctx, wh, nil))

	wh.Orders = append(wh.Orders, model.OrderFact{OrderID: "o2", CustomerID: "C1", CustomerUniqueID: "U1", Status: "shipped"})
	wh.Sellers = nil
	require.NoError(t, st.Write(ctx, wh, nil))

	assert.Equal(t, 2, countRows(t, st.db, model.TableOrders))
	assert.Equal(t, 0, countRows(t, st.db, model.TableSellers))
}

func TestSQLite_FailedWriteKeepsPreviousBuild(t *testing.T) {
	st := newTestSQLiteSink(t)
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, sampleWarehouse(), nil))

	// Duplicate primary key makes the orders insert fail after earlier tables were cleared.
	wh := sampleWarehouse()
	wh.Geolocation = nil
	wh.Orders = append(wh.Orders, wh.Orders[0])
	require.Error(t, st.Write(ctx, wh, nil))

	assert.Equal(t, 1, countRows(t, st.db, model.TableGeolocation))
	assert.Equal(t, 1, countRows(t, st.db, model.TableOrders))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteSink(t)
	ctx := context.Background()

	first := sampleSummary()
	require.NoError(t, st.Write(ctx, sampleWarehouse(), first))

	second := sampleSummary()
	second.RunID = "run-2"
	second.StartedAt = first.StartedAt.Add(1)
	require.NoError(t, st.Write(ctx, sampleWarehouse(), second))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "2018-10-17", runs[0].SnapshotDate)
	assert.True(t, second.StartedAt.Equal(runs[0].StartedAt))
	assert.Equal(t, 1, runs[1].Summary.Segments["low_value_one_timers"])

	runs, err = st.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
