package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/commerce-warehouse/internal/config"
	"github.com/sells-group/commerce-warehouse/internal/fetcher"
	"github.com/sells-group/commerce-warehouse/internal/source"
	"github.com/sells-group/commerce-warehouse/internal/store"
)

// addSourceFlags registers flags that override the source section of the config.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "raw source driver: csv or postgres")
	cmd.Flags().String("input", "", "csv directory, .zip archive, http(s)/ftp archive URL, or postgres URL of the raw snapshot")
	cmd.Flags().String("snapshot-date", "", "reference date for recency (YYYY-MM-DD)")
}

// addSinkFlags registers flags that override the store section of the config.
func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().String("sink", "", "output driver: sqlite, postgres or csv")
	cmd.Flags().String("output", "", "sqlite path, postgres URL or csv directory")
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("source") != nil && flags.Changed("source") {
		c.Source.Driver, _ = flags.GetString("source")
	}
	if flags.Lookup("input") != nil && flags.Changed("input") {
		v, _ := flags.GetString("input")
		if c.Source.Driver == "postgres" {
			c.Source.DatabaseURL = v
		} else {
			c.Source.Dir = v
		}
	}
	if flags.Lookup("snapshot-date") != nil && flags.Changed("snapshot-date") {
		c.Pipeline.SnapshotDate, _ = flags.GetString("snapshot-date")
	}
	if flags.Lookup("sink") != nil && flags.Changed("sink") {
		c.Store.Driver, _ = flags.GetString("sink")
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		v, _ := flags.GetString("output")
		switch c.Store.Driver {
		case "postgres":
			c.Store.DatabaseURL = v
		case "csv":
			c.Store.Dir = v
		default:
			c.Store.Path = v
		}
	}
}

// initSource opens the configured raw snapshot reader. The returned cleanup
// releases any connection pool.
func initSource(ctx context.Context) (source.Source, func(), error) {
	switch cfg.Source.Driver {
	case "csv":
		workDir, err := os.MkdirTemp("", "warehouse-snapshot-")
		if err != nil {
			return nil, nil, eris.Wrap(err, "create staging dir")
		}
		cleanup := func() { _ = os.RemoveAll(workDir) }
		dir, err := fetcher.NewStager().Stage(ctx, cfg.Source.Dir, workDir)
		if err != nil {
			cleanup()
			return nil, nil, eris.Wrap(err, "stage source")
		}
		return source.NewCSV(dir, source.WithConcurrency(cfg.Pipeline.Concurrency)), cleanup, nil
	case "postgres":
		pool, err := store.NewPostgresPool(ctx, cfg.Source.DatabaseURL, nil)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open source")
		}
		return source.NewPostgres(pool, cfg.Source.Schema, cfg.Pipeline.Concurrency), pool.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported source driver: %s", cfg.Source.Driver)
	}
}

func initSink(ctx context.Context) (store.Sink, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Schema, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	case "csv":
		return store.NewCSV(cfg.Store.Dir), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
