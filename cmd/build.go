package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/commerce-warehouse/internal/fact"
	"github.com/sells-group/commerce-warehouse/internal/monitoring"
	"github.com/sells-group/commerce-warehouse/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build all warehouse tables from the raw snapshot",
	Long:  "Loads the raw snapshot, derives the nine analytics tables and replaces the previous build in the output store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyFlags(cmd, cfg)
		if err := cfg.Validate("build"); err != nil {
			return err
		}
		snapshot, err := cfg.Pipeline.Snapshot()
		if err != nil {
			return err
		}

		src, closeSrc, err := initSource(ctx)
		if err != nil {
			return err
		}
		defer closeSrc()

		sink, err := initSink(ctx)
		if err != nil {
			return eris.Wrap(err, "open sink")
		}
		defer sink.Close() //nolint:errcheck

		if err := sink.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate sink")
		}

		wh, summary, err := pipeline.Run(ctx, src, pipeline.Options{
			SnapshotDate:            snapshot,
			DensityOutlierThreshold: cfg.Pipeline.DensityOutlierThreshold,
			Concurrency:             cfg.Pipeline.Concurrency,
		})
		if err != nil {
			var orphan *fact.OrphanOrderError
			if errors.As(err, &orphan) {
				fmt.Fprintf(os.Stderr, "build aborted: %d orders have no matching customer; nothing was written\n", len(orphan.OrderIDs))
			}
			return err
		}

		if err := sink.Write(ctx, wh, summary); err != nil {
			return eris.Wrap(err, "write warehouse")
		}

		monitoring.NewAlerter(cfg.Monitoring).Check(ctx, summary)

		zap.L().Info("build complete",
			zap.String("run_id", summary.RunID),
			zap.String("sink", cfg.Store.Driver),
			zap.Any("tables", summary.TableCounts),
			zap.Duration("elapsed", summary.Elapsed),
		)
		return nil
	},
}

func init() {
	addSourceFlags(buildCmd)
	addSinkFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}
