// Package csvfile loads accident datasets from plain, gzip-compressed, or
// zipped CSV files.
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
	utf8BOM   = []byte("\xef\xbb\xbf")
)

// Format is the detected container of an input file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatGzip Format = "gzip"
	FormatZip  Format = "zip"
)

// Loader reads a dataset file into a domain.RawTable.
type Loader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{logger: logger, metrics: metrics}
}

// Load reads the file at path. The container is detected from its leading
// bytes, not its extension. Every failure wraps domain.ErrDataLoad.
func (l *Loader) Load(ctx context.Context, path string) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrDataLoad, path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	format := detect(br)

	var (
		src   io.Reader
		entry string
	)
	switch format {
	case FormatZip:
		zr, name, err := openZipEntry(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
		}
		defer zr.Close()
		src, entry = zr, name
	case FormatGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip %s: %w", domain.ErrDataLoad, path, err)
		}
		defer gz.Close()
		src = gz
	default:
		src = br
	}

	records, err := csv.NewReader(&ctxReader{ctx: ctx, r: skipBOM(src)}).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrDataLoad, path, err)
	}
	raw, err := domain.RawTableFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	l.metrics.RowsLoaded.Add(float64(raw.Len()))
	l.logger.Info("dataset loaded",
		"path", path,
		"format", format,
		"entry", entry,
		"rows", raw.Len(),
		"columns", len(raw.Columns()),
	)
	return raw, nil
}

func detect(br *bufio.Reader) Format {
	head, _ := br.Peek(len(zipMagic))
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzip
	default:
		return FormatCSV
	}
}

// skipBOM drops a leading UTF-8 byte order mark, as written by spreadsheet
// exports.
func skipBOM(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// zipEntry is an open archive member that closes its archive with it.
type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// openZipEntry opens the first .csv member of the archive, or the first
// regular file when no member has that extension.
func openZipEntry(p string) (io.ReadCloser, string, error) {
	archive, err := zip.OpenReader(p)
	if err != nil {
		return nil, "", fmt.Errorf("zip %s: %w", p, err)
	}

	var pick *zip.File
	for _, f := range archive.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if strings.EqualFold(path.Ext(f.Name), ".csv") {
			pick = f
			break
		}
		if pick == nil {
			pick = f
		}
	}
	if pick == nil {
		archive.Close()
		return nil, "", fmt.Errorf("zip %s: archive has no files", p)
	}

	rc, err := pick.Open()
	if err != nil {
		archive.Close()
		return nil, "", fmt.Errorf("zip %s: open %s: %w", p, pick.Name, err)
	}
	return &zipEntry{ReadCloser: rc, archive: archive}, pick.Name, nil
}

// ctxReader stops a long parse once the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
