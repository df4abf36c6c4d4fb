// Package fetcher reads batch site lists from CSV and XLSX files, local or
// served over HTTP.
package fetcher

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format is a supported site list file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat returns the format implied by the file extension of src.
// Query strings on URLs are ignored.
func DetectFormat(src string) (Format, error) {
	if i := strings.IndexAny(src, "?#"); i >= 0 && IsRemote(src) {
		src = src[:i]
	}
	switch strings.ToLower(path.Ext(src)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("fetcher: unsupported site list %q (want .csv or .xlsx)", src)
	}
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Localize returns a local path for src, downloading remote sources into a
// temporary file. The returned cleanup removes any temporary file.
func Localize(ctx context.Context, h *HTTPFetcher, src string) (string, func(), error) {
	if !IsRemote(src) {
		return src, func() {}, nil
	}
	format, err := DetectFormat(src)
	if err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp("", "sites-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create temp dir")
	}
	cleanup := func() { os.RemoveAll(dir) } //nolint:errcheck

	dst := filepath.Join(dir, "sites."+string(format))
	if _, err := h.DownloadToFile(ctx, src, dst); err != nil {
		cleanup()
		return "", nil, err
	}
	return dst, cleanup, nil
}
