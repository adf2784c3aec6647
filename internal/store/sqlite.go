package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/resilience"
)

// SQLiteSink writes the warehouse into a SQLite file using modernc.org/sqlite.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer; the whole build is a single transaction anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSink{db: db}, nil
}

// runTimeLayout is fixed-width so text ordering matches time ordering.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteRunsMigration = `
CREATE TABLE IF NOT EXISTS warehouse_runs (
	id            TEXT PRIMARY KEY,
	snapshot_date TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	summary       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_warehouse_runs_started_at ON warehouse_runs(started_at);
`

// Migrate creates the output tables if they do not exist.
func (s *SQLiteSink) Migrate(ctx context.Context) error {
	for _, t := range Tables {
		if _, err := s.db.ExecContext(ctx, t.createTableSQL(t.Name, sqliteType)); err != nil {
			return eris.Wrapf(err, "sqlite: migrate %s", t.Name)
		}
	}
	_, err := s.db.ExecContext(ctx, sqliteRunsMigration)
	return eris.Wrap(err, "sqlite: migrate runs")
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Write replaces all nine tables and records the run in one transaction.
// A transaction that fails on a busy database is retried from the start.
func (s *SQLiteSink) Write(ctx context.Context, wh *model.Warehouse, summary *model.RunSummary) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("sqlite: write")
	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		return s.write(ctx, wh, summary)
	})
}

func (s *SQLiteSink) write(ctx context.Context, wh *model.Warehouse, summary *model.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range Tables {
		start := time.Now()
		n, err := replaceSQLite(ctx, tx, t, t.Rows(wh))
		if err != nil {
			return err
		}
		zap.L().Debug("sqlite: table written",
			zap.String("table", t.Name),
			zap.Int("rows", n),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}

	if summary != nil {
		if err := insertRunSQLite(ctx, tx, summary); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func replaceSQLite(ctx context.Context, tx *sql.Tx, t Table, rows [][]any) (int, error) {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.Name); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", t.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	cols := t.Columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", t.Name)
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, len(cols))
	for i, row := range rows {
		for j, v := range row {
			args[j] = sqliteValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return i, eris.Wrapf(err, "sqlite: insert %s row %d", t.Name, i)
		}
	}
	return len(rows), nil
}

func insertRunSQLite(ctx context.Context, tx *sql.Tx, summary *model.RunSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO warehouse_runs (id, snapshot_date, started_at, summary) VALUES (?, ?, ?, ?)`,
		summary.RunID, summary.SnapshotDate, summary.StartedAt.UTC().Format(runTimeLayout), string(body),
	)
	return eris.Wrap(err, "sqlite: insert run")
}

// ListRuns returns the most recent builds first.
func (s *SQLiteSink) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_date, started_at, summary FROM warehouse_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			body      string
		)
		if err := rows.Scan(&r.ID, &r.SnapshotDate, &startedAt, &body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if r.StartedAt, err = time.Parse(runTimeLayout, startedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse started_at of run %s", r.ID)
		}
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(body), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
