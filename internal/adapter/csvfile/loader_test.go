package csvfile

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

const sampleCSV = `ID,Severity,Start_Time,End_Time,Start_Lat,Start_Lng,Weather_Condition,Visibility(mi),Wind_Speed(mph),Precipitation(in),Temperature(F),Humidity(%),Pressure(in),Traffic_Signal,Sunrise_Sunset,Distance(mi),City
A-1,3,2016-02-08 05:46:00,2016-02-08 11:00:00,39.865147,-84.058723,Light Rain,10,,0.02,36.9,91,29.68,False,Night,0.01,Dayton
A-2,2,2016-02-08 06:07:59,2016-02-08 06:37:59,39.928059,-82.831184,Light Rain,10,,0.0,37.9,100,29.65,False,Night,0.01,Reynoldsburg
A-3,2,2016-02-08 06:49:27,2016-02-08 07:19:27,39.063148,-84.032608,Overcast,10,3.5,,36,100,29.67,True,Night,0.01,Williamsburg
`

func testLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func writeFile(t *testing.T, name string, write func(w io.Writer)) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	write(f)
	require.NoError(t, f.Close())
	return p
}

func TestLoad_PlainCSV(t *testing.T) {
	p := writeFile(t, "accidents.csv", func(w io.Writer) {
		_, err := io.WriteString(w, sampleCSV)
		require.NoError(t, err)
	})
	l := testLoader()

	raw, err := l.Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 3, raw.Len())
	assert.Contains(t, raw.Columns(), "City")
	assert.InDelta(t, 3, testutil.ToFloat64(l.metrics.RowsLoaded), 0)
}

func TestLoad_Gzip(t *testing.T) {
	p := writeFile(t, "accidents.csv.gz", func(w io.Writer) {
		gz := gzip.NewWriter(w)
		_, err := io.WriteString(gz, sampleCSV)
		require.NoError(t, err)
		require.NoError(t, gz.Close())
	})

	raw, err := testLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Len())
}

func TestLoad_ZipPicksCSVEntry(t *testing.T) {
	p := writeFile(t, "archive.zip", func(w io.Writer) {
		zw := zip.NewWriter(w)
		readme, err := zw.Create("README.txt")
		require.NoError(t, err)
		_, err = io.WriteString(readme, "not a dataset")
		require.NoError(t, err)
		csv, err := zw.Create("US_Accidents_March23.csv")
		require.NoError(t, err)
		_, err = io.WriteString(csv, sampleCSV)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	})

	raw, err := testLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Len())
}

func TestLoad_DetectsByContentNotExtension(t *testing.T) {
	p := writeFile(t, "accidents.csv", func(w io.Writer) {
		gz := gzip.NewWriter(w)
		_, err := io.WriteString(gz, sampleCSV)
		require.NoError(t, err)
		require.NoError(t, gz.Close())
	})

	raw, err := testLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Len())
}

func TestLoad_EmptyZip(t *testing.T) {
	p := writeFile(t, "empty.zip", func(w io.Writer) {
		require.NoError(t, zip.NewWriter(w).Close())
	})

	_, err := testLoader().Load(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrDataLoad)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := testLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, domain.ErrDataLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingColumns(t *testing.T) {
	p := writeFile(t, "partial.csv", func(w io.Writer) {
		_, err := io.WriteString(w, "Severity,Start_Time\n2,2016-02-08 05:46:00\n")
		require.NoError(t, err)
	})

	_, err := testLoader().Load(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrDataLoad)
	assert.Contains(t, err.Error(), "Weather_Condition")
}

func TestLoad_CancelledContext(t *testing.T) {
	p := writeFile(t, "accidents.csv", func(w io.Writer) {
		_, err := io.WriteString(w, sampleCSV)
		require.NoError(t, err)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testLoader().Load(ctx, p)
	require.ErrorIs(t, err, domain.ErrDataLoad)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_StripsByteOrderMark(t *testing.T) {
	bom := "\ufeff" + sampleCSV
	plain := writeFile(t, "excel.csv", func(w io.Writer) {
		_, err := io.WriteString(w, bom)
		require.NoError(t, err)
	})
	gz := writeFile(t, "excel.csv.gz", func(w io.Writer) {
		zw := gzip.NewWriter(w)
		_, err := io.WriteString(zw, bom)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	})

	for _, p := range []string{plain, gz} {
		raw, err := testLoader().Load(context.Background(), p)
		require.NoError(t, err, p)
		assert.Equal(t, 3, raw.Len())
		assert.Equal(t, "ID", raw.Columns()[0])
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	header, _, _ := strings.Cut(sampleCSV, "\n")
	p := writeFile(t, "header.csv", func(w io.Writer) {
		_, err := io.WriteString(w, header+"\n")
		require.NoError(t, err)
	})

	raw, err := testLoader().Load(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, raw.Len())
	assert.Contains(t, raw.Columns(), "Severity")

	table, stats, err := domain.Clean(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, domain.CleanStats{}, stats)
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeFile(t, "empty.csv", func(io.Writer) {})

	_, err := testLoader().Load(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrDataLoad)
}

func TestLoad_MalformedCSV(t *testing.T) {
	p := writeFile(t, "ragged.csv", func(w io.Writer) {
		_, err := io.WriteString(w, "Severity,Start_Time\n2\n")
		require.NoError(t, err)
	})

	_, err := testLoader().Load(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrDataLoad)
	assert.Contains(t, err.Error(), "parse")
}

func TestSkipBOM(t *testing.T) {
	got, err := io.ReadAll(skipBOM(strings.NewReader("\xef\xbb\xbfSeverity")))
	require.NoError(t, err)
	assert.Equal(t, "Severity", string(got))

	got, err = io.ReadAll(skipBOM(strings.NewReader("ab")))
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"PK\x03\x04rest": FormatZip,
		"\x1f\x8b\x08":   FormatGzip,
		"Severity,Start": FormatCSV,
		"":               FormatCSV,
	}
	for in, want := range tests {
		assert.Equal(t, want, detect(bufio.NewReader(strings.NewReader(in))), "%q", in)
	}
}
