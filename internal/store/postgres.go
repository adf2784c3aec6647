package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commerce-warehouse/internal/db"
	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/resilience"
)

// PostgresSink writes the warehouse into a Postgres schema using pgxpool.
type PostgresSink struct {
	pool    db.Pool
	schema  string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgresPool opens and pings a pgx pool. It is shared by the Postgres
// source and sink.
func NewPostgresPool(ctx context.Context, connString string, poolCfg *PoolConfig) (*pgxpool.Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres: ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// NewPostgres creates a PostgresSink with its own connection pool.
func NewPostgres(ctx context.Context, connString, schema string, poolCfg *PoolConfig) (*PostgresSink, error) {
	pool, err := NewPostgresPool(ctx, connString, poolCfg)
	if err != nil {
		return nil, err
	}
	return &PostgresSink{pool: pool, schema: schema, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a PostgresSink over an existing pool. Close
// does not close the pool.
func NewPostgresWithPool(pool db.Pool, schema string) *PostgresSink {
	return &PostgresSink{pool: pool, schema: schema}
}

func (s *PostgresSink) qualified(table string) string {
	if s.schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{s.schema, table}.Sanitize()
}

// Migrate creates the schema and output tables if they do not exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if s.schema != "" {
		if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
			return eris.Wrapf(err, "postgres: create schema %s", s.schema)
		}
	}
	for _, t := range Tables {
		if _, err := s.pool.Exec(ctx, t.createTableSQL(s.qualified(t.Name), postgresType)); err != nil {
			return eris.Wrapf(err, "postgres: migrate %s", t.Name)
		}
	}
	runs := `CREATE TABLE IF NOT EXISTS ` + s.qualified(RunsTable) + ` (
	id            TEXT PRIMARY KEY,
	snapshot_date DATE NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	summary       JSONB NOT NULL
)`
	_, err := s.pool.Exec(ctx, runs)
	return eris.Wrap(err, "postgres: migrate runs")
}

// Close releases the pool if the sink owns it.
func (s *PostgresSink) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Write truncates and reloads every table via COPY inside one transaction,
// then records the run.
func (s *PostgresSink) Write(ctx context.Context, wh *model.Warehouse, summary *model.RunSummary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, t := range Tables {
		start := time.Now()
		n, err := db.ReplaceTable(ctx, tx, db.ReplaceConfig{
			Schema:  s.schema,
			Table:   t.Name,
			Columns: t.Columns(),
		}, t.Rows(wh))
		if err != nil {
			return eris.Wrapf(err, "postgres: write %s", t.Name)
		}
		zap.L().Debug("postgres: table written",
			zap.String("table", t.Name),
			zap.Int64("rows", n),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}

	if summary != nil {
		body, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.qualified(RunsTable)+` (id, snapshot_date, started_at, summary) VALUES ($1, $2, $3, $4)`,
			summary.RunID, summary.SnapshotDate, summary.StartedAt.UTC(), body,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert run")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

// ListRuns returns the most recent builds first.
func (s *PostgresSink) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, snapshot_date::text, started_at, summary FROM `+s.qualified(RunsTable)+` ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r    Run
			body []byte
		)
		if err := rows.Scan(&r.ID, &r.SnapshotDate, &r.StartedAt, &body); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(body, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
