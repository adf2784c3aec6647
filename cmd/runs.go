package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List previous builds recorded by the output store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyFlags(cmd, cfg)
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		if cfg.Store.Driver == "csv" {
			m, err := store.ReadManifest(cfg.Store.Dir)
			if err != nil {
				return err
			}
			formatRunsList(os.Stdout, []store.Run{{ID: m.RunID, SnapshotDate: m.SnapshotDate, Summary: m.Summary}})
			return nil
		}

		sink, err := initSink(ctx)
		if err != nil {
			return eris.Wrap(err, "open sink")
		}
		defer sink.Close() //nolint:errcheck
		if err := sink.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate sink")
		}

		log, ok := sink.(store.RunLog)
		if !ok {
			return eris.Errorf("store driver %s does not record runs", cfg.Store.Driver)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := log.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	addSinkFlags(runsCmd)
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func formatRunsList(out io.Writer, runs []store.Run) {
	header := []string{"ID", "SNAPSHOT", "STARTED", "ORDERS", "CUSTOMERS"}
	rows := [][]string{header}
	for _, r := range runs {
		started, orders, customers := "", "", ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Format("2006-01-02 15:04")
		}
		if r.Summary != nil {
			orders = fmt.Sprint(r.Summary.TableCounts[model.TableOrders])
			customers = fmt.Sprint(r.Summary.TableCounts[model.TableCustomers])
		}
		rows = append(rows, []string{truncateID(r.ID), r.SnapshotDate, started, orders, customers})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				_, _ = fmt.Fprint(out, "  ")
			}
			_, _ = fmt.Fprint(out, runewidth.FillRight(cell, widths[i]))
		}
		_, _ = fmt.Fprintln(out)
	}
}

func truncateID(id string) string {
	return runewidth.Truncate(id, 8, "")
}
