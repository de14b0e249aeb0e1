package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
	"github.com/couchcryptid/accident-eda/internal/pipeline"
)

// --- mocks ---

type mockLoader struct {
	records [][]string
	err     error
}

func (m *mockLoader) Load(_ context.Context, _ string) (*domain.RawTable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.RawTableFromRecords(m.records)
}

type mockCharts struct {
	files    []string
	failOn   map[string]error
	panicOn  string
	onRender func(file string)
}

func (m *mockCharts) render(file string) (string, error) {
	m.files = append(m.files, file)
	if m.onRender != nil {
		m.onRender(file)
	}
	if file == m.panicOn {
		panic("nil matrix")
	}
	if err := m.failOn[file]; err != nil {
		return "", err
	}
	return filepath.Join("out", file), nil
}

func (m *mockCharts) RenderBars(_ context.Context, file string, _ domain.BarChart) (string, error) {
	return m.render(file)
}

func (m *mockCharts) RenderHistogram(_ context.Context, file string, _ domain.HistogramChart) (string, error) {
	return m.render(file)
}

func (m *mockCharts) RenderBoxPlot(_ context.Context, file string, _ domain.BoxPlotChart) (string, error) {
	return m.render(file)
}

func (m *mockCharts) RenderMatrix(_ context.Context, file string, _ domain.MatrixChart) (string, error) {
	return m.render(file)
}

type mockMap struct {
	path string
	m    domain.HeatMap
	err  error
}

func (m *mockMap) WriteHeatmap(_ context.Context, hm domain.HeatMap, path string) error {
	if m.err != nil {
		return m.err
	}
	m.path, m.m = path, hm
	return nil
}

type mockSummary struct {
	path    string
	summary *domain.Summary
}

func (m *mockSummary) WriteSummary(_ context.Context, s *domain.Summary, path string) error {
	m.path, m.summary = path, s
	return nil
}

type mockGeocoder struct {
	place string
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, at domain.LatLng) (domain.Place, error) {
	return domain.Place{
		Name:      m.place,
		Address:   m.place + ", Ohio, United States",
		Location:  at,
		Relevance: 1,
	}, nil
}

// --- fixtures ---

var header = append([]string{"ID", "Source"}, domain.CleanColumns...)

func row(id, severity, start, weather string) []string {
	return []string{
		id, "Source2", severity, start, start, "39.865147", "-84.058723", weather,
		"10", "5", "0", "36.9", "91", "29.68", "False", "Night", "0.01",
	}
}

// fiveRows has three valid rows, one without a weather condition and one
// with an unparseable Start_Time.
func fiveRows() [][]string {
	return [][]string{
		header,
		row("A-1", "3", "2016-02-08 05:46:00", "Light Rain"),
		row("A-2", "2", "2016-02-08 06:07:59", "Light Rain"),
		row("A-3", "2", "2016-02-08 06:49:27", "Overcast"),
		row("A-4", "2", "2016-02-08 07:23:34", ""),
		row("A-5", "3", "not a time", "Clear"),
	}
}

type harness struct {
	loader  *mockLoader
	charts  *mockCharts
	maps    *mockMap
	summary *mockSummary
	metrics *observability.Metrics
	out     *bytes.Buffer
	logs    *bytes.Buffer
	opts    pipeline.Options
	geo     domain.Geocoder
}

func newHarness() *harness {
	return &harness{
		loader:  &mockLoader{records: fiveRows()},
		charts:  &mockCharts{},
		maps:    &mockMap{},
		summary: &mockSummary{},
		metrics: observability.NewMetricsForTesting(),
		out:     &bytes.Buffer{},
		logs:    &bytes.Buffer{},
		opts: pipeline.Options{
			RunID:              "run-1",
			OutputDir:          "out",
			HeatmapFile:        "Accident_Hotspots.html",
			SummaryFile:        "summary.xlsx",
			HotspotCount:       10,
			HotspotCellDegrees: 0.5,
		},
	}
}

func (h *harness) pipeline() *pipeline.Pipeline {
	h.opts.Out = h.out
	stages := pipeline.Stages{
		Loader:   h.loader,
		Charts:   h.charts,
		Map:      h.maps,
		Summary:  h.summary,
		Geocoder: h.geo,
	}
	return pipeline.New(stages, h.opts, slog.New(slog.NewTextHandler(h.logs, nil)), h.metrics)
}

var chartFiles = []string{
	pipeline.FileSeverityByWeather,
	pipeline.FileTopWeather,
	pipeline.FileAccidentsByHour,
	pipeline.FileAccidentsByWeekday,
	pipeline.FileDistanceDistribution,
	pipeline.FileVisibilityVsSeverity,
	pipeline.FileTemperatureVsSeverity,
	pipeline.FileDayVsNight,
	pipeline.FileCorrelationHeatmap,
}

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
	return now
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	now := freezeClock(t)
	h := newHarness()

	summary, err := h.pipeline().Run(context.Background(), "/data/accidents.csv")
	require.NoError(t, err)

	assert.Equal(t, chartFiles, h.charts.files)
	assert.Equal(t, filepath.Join("out", "Accident_Hotspots.html"), h.maps.path)
	assert.Equal(t, filepath.Join("out", "summary.xlsx"), h.summary.path)
	assert.Same(t, summary, h.summary.summary)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "accidents.csv", summary.Source)
	assert.Equal(t, now, summary.GeneratedAt)
	assert.Equal(t, domain.CleanStats{Loaded: 5, MissingRequired: 1, InvalidStartTime: 1, Retained: 3}, summary.Clean)
	assert.Len(t, summary.Steps, 10)
	assert.Empty(t, summary.Failed())
	assert.Equal(t, 3, summary.HeatPoints)

	want := []domain.CategoryCount{
		{Category: "Light Rain", Count: 2},
		{Category: "Overcast", Count: 1},
	}
	if diff := cmp.Diff(want, summary.TopWeather); diff != "" {
		t.Errorf("TopWeather mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, summary.ByHour, 24)
	assert.Len(t, summary.ByWeekday, 7)
	assert.Len(t, summary.ByMonth, 12)

	assert.Equal(t, "2024-03-01T12:00:00Z", h.maps.m.GeneratedAt)
	assert.Len(t, h.maps.m.Points, 3)
	require.Len(t, h.maps.m.Hotspots, 1)
	assert.Equal(t, 3, h.maps.m.Hotspots[0].Count)
	assert.Equal(t, "39.865, -84.059", h.maps.m.Hotspots[0].Label)

	out := h.out.String()
	assert.Contains(t, out, "Dataset Loaded. First 5 Rows:")
	assert.Contains(t, out, "A-5")
	assert.Contains(t, out, "Cleaned: 5 rows loaded, 2 dropped (1 missing required values, 1 invalid Start_Time), 3 retained.")
	assert.Contains(t, out, "Saved 09_correlation_heatmap.png")
	assert.Contains(t, out, "Heatmap saved as 'Accident_Hotspots.html'.")
	assert.Contains(t, out, "Summary saved as 'summary.xlsx'.")

	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.RowsDropped.WithLabelValues("missing_required")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.RowsDropped.WithLabelValues("invalid_start_time")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(h.metrics.RowsRetained), 0)
	assert.Equal(t, 10, testutil.CollectAndCount(h.metrics.StepDuration))
}

func TestPipeline_Run_LoadFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.loader.err = errors.Join(domain.ErrDataLoad, errors.New("no such file"))

	_, err := h.pipeline().Run(context.Background(), "missing.csv")
	require.ErrorIs(t, err, domain.ErrDataLoad)

	assert.Empty(t, h.charts.files)
	assert.Empty(t, h.maps.path)
	assert.Nil(t, h.summary.summary)
	assert.NotContains(t, h.out.String(), "Dataset Loaded")
}

func TestPipeline_Run_MissingColumnIsFatal(t *testing.T) {
	h := newHarness()
	h.loader.records = [][]string{{"Severity", "Start_Time"}, {"2", "2016-02-08 05:46:00"}}

	_, err := h.pipeline().Run(context.Background(), "narrow.csv")
	require.ErrorIs(t, err, domain.ErrDataLoad)
	assert.Empty(t, h.charts.files)
}

func TestPipeline_Run_StepFailureContinues(t *testing.T) {
	h := newHarness()
	h.charts.failOn = map[string]error{
		pipeline.FileAccidentsByHour: errors.Join(domain.ErrWrite, errors.New("disk full")),
	}

	summary, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.ErrorIs(t, err, domain.ErrWrite)
	assert.Contains(t, err.Error(), "accidents_by_hour")

	assert.Equal(t, chartFiles, h.charts.files, "later steps still run")
	assert.NotEmpty(t, h.maps.path)
	require.Len(t, summary.Failed(), 1)
	assert.Equal(t, "accidents_by_hour", summary.Failed()[0].Name)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.StepFailures.WithLabelValues("accidents_by_hour")), 0)
	assert.Contains(t, h.out.String(), "Step accidents_by_hour failed")
	assert.NotNil(t, h.summary.summary, "workbook still written")
}

func TestPipeline_Run_PanicIsRecovered(t *testing.T) {
	h := newHarness()
	h.charts.panicOn = pipeline.FileCorrelationHeatmap

	summary, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.ErrorIs(t, err, domain.ErrRender)
	assert.Contains(t, err.Error(), "nil matrix")

	require.Len(t, summary.Failed(), 1)
	assert.Equal(t, "correlation_heatmap", summary.Failed()[0].Name)
	assert.NotEmpty(t, h.maps.path, "heatmap step runs after the panic")
}

func TestPipeline_Run_HeatmapWriteFailure(t *testing.T) {
	h := newHarness()
	h.maps.err = errors.Join(domain.ErrWrite, errors.New("permission denied"))

	summary, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.ErrorIs(t, err, domain.ErrWrite)

	assert.Equal(t, chartFiles, h.charts.files, "earlier charts unaffected")
	require.Len(t, summary.Failed(), 1)
	assert.Equal(t, "heatmap", summary.Failed()[0].Name)
	assert.NotContains(t, h.out.String(), "Heatmap saved")
}

func TestPipeline_Run_CancelledBetweenSteps(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.charts.onRender = func(string) { cancel() }

	summary, err := h.pipeline().Run(ctx, "accidents.csv")
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{pipeline.FileSeverityByWeather}, h.charts.files)
	assert.Len(t, summary.Steps, 1)
	assert.Empty(t, h.maps.path)
}

func TestPipeline_Run_GeocodesHotspots(t *testing.T) {
	h := newHarness()
	h.geo = &mockGeocoder{place: "Dayton"}

	summary, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.NoError(t, err)

	require.Len(t, summary.Hotspots, 1)
	assert.Equal(t, "Dayton", summary.Hotspots[0].Label)
	assert.Equal(t, "reverse", summary.Hotspots[0].GeoSource)
	assert.Equal(t, "Dayton", h.maps.m.Hotspots[0].Label)
}

func TestPipeline_Run_SummaryDisabled(t *testing.T) {
	h := newHarness()
	h.opts.SummaryFile = ""

	_, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.NoError(t, err)
	assert.Nil(t, h.summary.summary)
	assert.NotContains(t, h.out.String(), "Summary saved")
}

func TestPipeline_Prepare(t *testing.T) {
	h := newHarness()

	table, stats, err := h.pipeline().Prepare(context.Background(), "accidents.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 2, stats.Dropped())
	assert.NotContains(t, table.Columns(), "ID")
	assert.Empty(t, h.charts.files)
}

func TestRun_LogsRunIDOnce(t *testing.T) {
	h := newHarness()
	_, err := h.pipeline().Run(context.Background(), "accidents.csv")
	require.NoError(t, err)

	var finished string
	for _, line := range strings.Split(h.logs.String(), "\n") {
		if strings.Contains(line, "pipeline finished") {
			finished = line
		}
	}
	require.NotEmpty(t, finished)
	assert.Equal(t, 1, strings.Count(finished, "run_id=run-1"))
	assert.Equal(t, 1, strings.Count(finished, "run_id="))
}
