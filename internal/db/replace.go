package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceConfig describes one table of a full-replace load.
type ReplaceConfig struct {
	Schema  string   // target schema (e.g., "analytics")
	Table   string   // target table (e.g., "orders_clean")
	Columns []string // columns in row order
}

// ReplaceTable swaps the contents of a table inside tx:
// 1. TRUNCATE the target
// 2. COPY the new rows in
//
// Nothing is visible to other sessions until the caller commits tx, so
// readers never observe a half-loaded table.
func ReplaceTable(ctx context.Context, tx pgx.Tx, cfg ReplaceConfig, rows [][]any) (int64, error) {
	if len(cfg.Columns) == 0 {
		return 0, eris.Errorf("db: replace %s: no columns specified", cfg.Table)
	}

	ident := pgx.Identifier{cfg.Schema, cfg.Table}
	if cfg.Schema == "" {
		ident = pgx.Identifier{cfg.Table}
	}

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ident.Sanitize()); err != nil {
		return 0, eris.Wrapf(err, "db: replace: truncate %s", cfg.Table)
	}

	if cfg.Schema == "" {
		return CopyFrom(ctx, tx, cfg.Table, cfg.Columns, rows)
	}
	return CopyFromSchema(ctx, tx, cfg.Schema, cfg.Table, cfg.Columns, rows)
}
