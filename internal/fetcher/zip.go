package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractCSVs extracts every .csv entry of a ZIP archive into destDir,
// dropping any directory prefix inside the archive. Other entries are skipped.
func ExtractCSVs(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "zip: create directory")
	}

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		base := filepath.Base(filepath.FromSlash(f.Name))
		if strings.HasPrefix(base, ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		path, err := extractEntry(f, filepath.Join(destDir, base))
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, path)
	}
	if len(extracted) == 0 {
		return nil, eris.Errorf("zip: no csv files in %s", zipPath)
	}
	return extracted, nil
}

func extractEntry(f *zip.File, destPath string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(err, "zip: write %s", destPath)
	}
	return destPath, nil
}
