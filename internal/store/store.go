// Package store writes the warehouse tables to an output backend.
package store

import (
	"context"
	"time"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

// Sink persists a finished build. Write replaces the previous contents of
// every table; a failed Write leaves the previous build in place.
type Sink interface {
	Migrate(ctx context.Context) error
	Write(ctx context.Context, wh *model.Warehouse, summary *model.RunSummary) error
	Close() error
}

// RunLog is implemented by sinks that keep a history of builds.
type RunLog interface {
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run is one recorded build.
type Run struct {
	ID           string            `json:"id"`
	SnapshotDate string            `json:"snapshot_date"`
	StartedAt    time.Time         `json:"started_at"`
	Summary      *model.RunSummary `json:"summary"`
}

// RunsTable holds one row per successful build.
const RunsTable = "warehouse_runs"
