package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/pipeline"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the build in memory and print the data-quality summary",
	Long:  "Runs every stage against the raw snapshot without writing output, then prints row counts, quality counters and the RFM segment distribution.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyFlags(cmd, cfg)
		if err := cfg.Validate("report"); err != nil {
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

		_, summary, err := pipeline.Run(ctx, src, pipeline.Options{
			SnapshotDate:            snapshot,
			DensityOutlierThreshold: cfg.Pipeline.DensityOutlierThreshold,
			Concurrency:             cfg.Pipeline.Concurrency,
		})
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return writeReport(os.Stdout, summary, format)
	},
}

func init() {
	addSourceFlags(reportCmd)
	reportCmd.Flags().String("format", "table", "output format: table or yaml")
	rootCmd.AddCommand(reportCmd)
}

func writeReport(out io.Writer, s *model.RunSummary, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return enc.Close()
	case "table", "":
		formatSummary(out, s)
		return nil
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

type kv struct {
	key   string
	value string
}

func formatSummary(out io.Writer, s *model.RunSummary) {
	_, _ = fmt.Fprintf(out, "Run %s  snapshot %s\n\n", s.RunID, s.SnapshotDate)

	writeSection(out, "RAW ROWS", sortedCounts(s.RawCounts))
	writeSection(out, "TABLES", sortedCounts(s.TableCounts))
	writeSection(out, "DATA QUALITY", []kv{
		{"ambiguous zip prefixes", fmt.Sprint(s.AmbiguousZipPrefixes)},
		{"merged customer ids", fmt.Sprint(s.MergedCustomerIDs)},
		{"sellers without geo", fmt.Sprint(s.UnmatchedSellerGeo)},
		{"products invalid weight", fmt.Sprint(s.InvalidWeightProducts)},
		{"products invalid dimensions", fmt.Sprint(s.InvalidDimensionProducts)},
		{"products missing translation", fmt.Sprint(s.MissingTranslationProducts)},
		{"products density outlier", fmt.Sprint(s.DensityOutlierProducts)},
		{"duplicate reviews dropped", fmt.Sprint(s.DuplicateReviewsDropped)},
		{"low quality reviews", fmt.Sprint(s.LowQualityReviews)},
		{"invalid price rows", fmt.Sprint(s.InvalidPriceRows)},
		{"invalid freight rows", fmt.Sprint(s.InvalidFreightRows)},
		{"invalid payment rows", fmt.Sprint(s.InvalidPaymentRows)},
		{"orders without items", fmt.Sprint(s.OrdersWithoutItems)},
		{"orders without payments", fmt.Sprint(s.OrdersWithoutPayments)},
		{"chronology violations", fmt.Sprint(s.ChronologyViolations)},
		{"delayed orders", fmt.Sprint(s.DelayedOrders)},
		{"canceled or unavailable", fmt.Sprint(s.CanceledOrUnavailable)},
	})
	writeSection(out, "SEGMENTS", sortedCounts(s.Segments))
}

// writeSection prints a titled two-column block. Keys are padded by display
// width so accented labels stay aligned.
func writeSection(out io.Writer, title string, rows []kv) {
	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.key); w > width {
			width = w
		}
	}
	_, _ = fmt.Fprintln(out, title)
	_, _ = fmt.Fprintln(out, strings.Repeat("-", runewidth.StringWidth(title)))
	for _, r := range rows {
		_, _ = fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(r.key, width), r.value)
	}
	_, _ = fmt.Fprintln(out)
}

func sortedCounts(m map[string]int) []kv {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]kv, len(keys))
	for i, k := range keys {
		out[i] = kv{k, fmt.Sprint(m[k])}
	}
	return out
}
