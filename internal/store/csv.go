package store

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

// ManifestFile is written next to the CSV tables.
const ManifestFile = "manifest.yaml"

// Manifest describes one CSV export.
type Manifest struct {
	RunID        string            `yaml:"run_id"`
	SnapshotDate string            `yaml:"snapshot_date"`
	Files        map[string]string `yaml:"files"`
	Rows         map[string]int    `yaml:"rows"`
	Summary      *model.RunSummary `yaml:"summary,omitempty"`
}

// CSVSink writes one CSV file per table into a directory.
type CSVSink struct {
	dir string
}

// NewCSV creates a CSVSink rooted at dir.
func NewCSV(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Migrate creates the output directory.
func (s *CSVSink) Migrate(_ context.Context) error {
	return eris.Wrapf(os.MkdirAll(s.dir, 0o755), "csv: create %s", s.dir)
}

// Close is a no-op.
func (s *CSVSink) Close() error { return nil }

// Write replaces every table file and the manifest. Each file is written to a
// temp file and renamed, so readers never see a partial file.
func (s *CSVSink) Write(ctx context.Context, wh *model.Warehouse, summary *model.RunSummary) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	writers := []struct {
		table string
		write func(path string) error
	}{
		{model.TableGeolocation, func(p string) error { return writeCSV(p, wh.Geolocation) }},
		{model.TableCustomers, func(p string) error { return writeCSV(p, wh.Customers) }},
		{model.TableProducts, func(p string) error { return writeCSV(p, wh.Products) }},
		{model.TableSellers, func(p string) error { return writeCSV(p, wh.Sellers) }},
		{model.TableReviews, func(p string) error { return writeCSV(p, wh.Reviews) }},
		{model.TableItems, func(p string) error { return writeCSV(p, wh.Items) }},
		{model.TablePayments, func(p string) error { return writeCSV(p, wh.Payments) }},
		{model.TableOrders, func(p string) error { return writeCSV(p, wh.Orders) }},
		{model.TableCustomerRFM, func(p string) error { return writeCSV(p, wh.CustomerRFM) }},
	}

	files := make(map[string]string, len(writers))
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: write cancelled")
		}
		name := w.table + ".csv"
		if err := w.write(filepath.Join(s.dir, name)); err != nil {
			return eris.Wrapf(err, "csv: write %s", w.table)
		}
		files[w.table] = name
	}

	m := Manifest{Files: files, Rows: wh.Counts(), Summary: summary}
	if summary != nil {
		m.RunID = summary.RunID
		m.SnapshotDate = summary.SnapshotDate
	}
	if err := writeManifest(filepath.Join(s.dir, ManifestFile), m); err != nil {
		return err
	}

	zap.L().Info("csv: tables written", zap.String("dir", s.dir), zap.Strings("files", sortedValues(files)))
	return nil
}

func writeCSV[T any](path string, rows []T) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		enc := csvutil.NewEncoder(w)
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "encode header")
		}
		if len(rows) > 0 {
			if err := enc.Encode(rows); err != nil {
				return eris.Wrap(err, "encode rows")
			}
		}
		w.Flush()
		return w.Error()
	})
}

func writeManifest(path string, m Manifest) error {
	return writeAtomic(path, func(f *os.File) error {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return eris.Wrap(err, "csv: encode manifest")
		}
		return enc.Close()
	})
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path on success.
func writeAtomic(path string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := fill(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "rename temp file")
}

// ReadManifest loads the manifest of a CSV export directory.
func ReadManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, eris.Wrap(err, "csv: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, eris.Wrap(err, "csv: parse manifest")
	}
	return &m, nil
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
