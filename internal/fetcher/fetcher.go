// Package fetcher stages a raw CSV export locally. The export may be a
// directory, a ZIP archive, or a ZIP archive behind an http(s) or ftp URL.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Stager resolves an input location to a local directory of CSV files.
type Stager struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewStager creates a Stager with default HTTP and FTP fetchers.
func NewStager() *Stager {
	return &Stager{
		HTTP: NewHTTPFetcher(HTTPOptions{}),
		FTP:  NewFTPFetcher(FTPOptions{}),
	}
}

// Stage returns a directory holding the CSV files of input. Remote archives
// are downloaded into workDir and archives are extracted there. A plain
// directory is returned unchanged.
func (s *Stager) Stage(ctx context.Context, input, workDir string) (string, error) {
	if u, err := url.Parse(input); err == nil && len(u.Scheme) > 1 {
		var f Fetcher
		switch u.Scheme {
		case "http", "https":
			f = s.HTTP
		case "ftp":
			f = s.FTP
		default:
			return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
		}
		archive := filepath.Join(workDir, "snapshot.zip")
		n, err := downloadToFile(ctx, f, input, archive)
		if err != nil {
			return "", err
		}
		zap.L().Info("fetcher: archive downloaded", zap.String("url", input), zap.Int64("bytes", n))
		input = archive
	}

	info, err := os.Stat(input)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: stat %s", input)
	}
	if info.IsDir() {
		return input, nil
	}
	if !strings.EqualFold(filepath.Ext(input), ".zip") {
		return "", eris.Errorf("fetcher: %s is neither a directory nor a .zip archive", input)
	}

	dest := filepath.Join(workDir, "csv")
	files, err := ExtractCSVs(input, dest)
	if err != nil {
		return "", err
	}
	zap.L().Info("fetcher: archive extracted", zap.String("archive", input), zap.Int("files", len(files)))
	return dest, nil
}

func downloadToFile(ctx context.Context, f Fetcher, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}
