// Package xlsx exports a run summary as an Excel workbook with one sheet per
// report.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

// Sheet names, in workbook order.
const (
	SheetSummary           = "Summary"
	SheetSeverityWeather   = "SeverityWeather"
	SheetTopWeather        = "TopWeather"
	SheetHour              = "Hour"
	SheetWeekday           = "Weekday"
	SheetMonth             = "Month"
	SheetDistance          = "Distance"
	SheetVisibility        = "Visibility"
	SheetTemperature       = "Temperature"
	SheetDayNight          = "DayNight"
	SheetCorrelation       = "Correlation"
	SheetHotspots          = "Hotspots"
	defaultColumnWidth     = 16.0
	defaultFirstSheetIndex = 0
)

// Writer saves summary workbooks.
type Writer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{logger: logger, metrics: metrics}
}

// WriteSummary writes s to path. Building the workbook wraps
// domain.ErrRender on failure; saving it wraps domain.ErrWrite.
func (w *Writer) WriteSummary(ctx context.Context, s *domain.Summary, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	b, err := newBook(f)
	if err != nil {
		return fmt.Errorf("%w: workbook: %w", domain.ErrRender, err)
	}
	if err := b.fill(s); err != nil {
		return fmt.Errorf("%w: workbook: %w", domain.ErrRender, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("%w: encode workbook: %w", domain.ErrRender, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}

	w.metrics.ArtifactsWritten.WithLabelValues("xlsx").Inc()
	w.logger.Info("summary workbook written", "path", path, "sheets", len(f.GetSheetList()))
	return nil
}

type book struct {
	f      *excelize.File
	header int
	sheets int
}

func newBook(f *excelize.File) (*book, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "9BC2E6", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	return &book{f: f, header: header}, nil
}

func (b *book) fill(s *domain.Summary) error {
	steps := []func(*domain.Summary) error{
		b.summary,
		b.severityWeather,
		b.topWeather,
		b.hour,
		b.weekday,
		b.month,
		b.distance,
		func(s *domain.Summary) error { return b.boxes(SheetVisibility, s.VisibilityBySeverity) },
		func(s *domain.Summary) error { return b.boxes(SheetTemperature, s.TemperatureBySeverity) },
		b.dayNight,
		b.correlation,
		b.hotspots,
	}
	for _, step := range steps {
		if err := step(s); err != nil {
			return err
		}
	}
	b.f.SetActiveSheet(defaultFirstSheetIndex)
	return nil
}

// table writes a header row and data rows into a new sheet. The first sheet
// reuses the workbook's default sheet.
func (b *book) table(name string, header []string, rows [][]any) error {
	if b.sheets == 0 {
		if err := b.f.SetSheetName(b.f.GetSheetName(0), name); err != nil {
			return err
		}
	} else if _, err := b.f.NewSheet(name); err != nil {
		return err
	}
	b.sheets++

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := b.f.SetSheetRow(name, "A1", &head); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(max(1, len(header)))
	if err != nil {
		return err
	}
	if err := b.f.SetCellStyle(name, "A1", last+"1", b.header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := b.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
	}
	if err := b.f.SetColWidth(name, "A", last, defaultColumnWidth); err != nil {
		return err
	}
	return b.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (b *book) summary(s *domain.Summary) error {
	generated := ""
	if !s.GeneratedAt.IsZero() {
		generated = s.GeneratedAt.UTC().Format(time.RFC3339)
	}
	rows := [][]any{
		{"Run ID", s.RunID},
		{"Source", s.Source},
		{"Generated At", generated},
		{"Rows Loaded", s.Clean.Loaded},
		{"Dropped (missing required)", s.Clean.MissingRequired},
		{"Dropped (invalid Start_Time)", s.Clean.InvalidStartTime},
		{"Rows Retained", s.Clean.Retained},
		{"Heat Points", s.HeatPoints},
		{},
		{"Step", "Artifact", "Duration (s)", "Status", "Error"},
	}
	for _, r := range s.Steps {
		row := []any{r.Name, r.Artifact, r.Duration.Seconds(), "ok"}
		if !r.OK() {
			row[3] = "failed"
			row = append(row, r.Err.Error())
		}
		rows = append(rows, row)
	}
	return b.table(SheetSummary, []string{"Field", "Value"}, rows)
}

func (b *book) severityWeather(s *domain.Summary) error {
	rows := make([][]any, len(s.SeverityByWeather))
	for i, c := range s.SeverityByWeather {
		rows[i] = []any{c.Severity, domain.SeverityName(c.Severity), c.Weather, c.Count}
	}
	return b.table(SheetSeverityWeather, []string{"Severity", "Severity Name", "Weather", "Count"}, rows)
}

func (b *book) topWeather(s *domain.Summary) error {
	rows := make([][]any, len(s.TopWeather))
	for i, c := range s.TopWeather {
		rows[i] = []any{i + 1, c.Category, c.Count}
	}
	return b.table(SheetTopWeather, []string{"Rank", "Weather", "Count"}, rows)
}

func (b *book) hour(s *domain.Summary) error {
	rows := make([][]any, len(s.ByHour))
	for i, c := range s.ByHour {
		rows[i] = []any{intOrText(c.Category), c.Count}
	}
	return b.table(SheetHour, []string{"Hour", "Count"}, rows)
}

func (b *book) weekday(s *domain.Summary) error {
	rows := make([][]any, len(s.ByWeekday))
	for i, c := range s.ByWeekday {
		day := intOrText(c.Category)
		name := c.Category
		if n, ok := day.(int); ok {
			name = domain.WeekdayName(n)
		}
		rows[i] = []any{day, name, c.Count}
	}
	return b.table(SheetWeekday, []string{"Weekday", "Name", "Count"}, rows)
}

func (b *book) month(s *domain.Summary) error {
	rows := make([][]any, len(s.ByMonth))
	for i, c := range s.ByMonth {
		month := intOrText(c.Category)
		name := c.Category
		if n, ok := month.(int); ok {
			name = domain.MonthName(n)
		}
		rows[i] = []any{month, name, c.Count}
	}
	return b.table(SheetMonth, []string{"Month", "Name", "Count"}, rows)
}

func (b *book) distance(s *domain.Summary) error {
	h := s.Distance
	rows := make([][]any, 0, len(h.Counts))
	for i, n := range h.Counts {
		if i+1 >= len(h.Edges) {
			break
		}
		rows = append(rows, []any{h.Edges[i], h.Edges[i+1], n})
	}
	return b.table(SheetDistance, []string{"Bin Start (mi)", "Bin End (mi)", "Count"}, rows)
}

func (b *book) boxes(name string, boxes []domain.BoxStats) error {
	rows := make([][]any, len(boxes))
	for i, x := range boxes {
		rows[i] = []any{
			x.Group, x.N,
			num(x.LowerWhisker), num(x.Q1), num(x.Median), num(x.Q3), num(x.UpperWhisker),
			x.OutlierCount,
		}
	}
	header := []string{"Severity", "N", "Lower Whisker", "Q1", "Median", "Q3", "Upper Whisker", "Outliers"}
	return b.table(name, header, rows)
}

func (b *book) dayNight(s *domain.Summary) error {
	rows := make([][]any, len(s.DayNight))
	for i, c := range s.DayNight {
		rows[i] = []any{c.Category, c.Count}
	}
	return b.table(SheetDayNight, []string{"Sunrise_Sunset", "Count"}, rows)
}

func (b *book) correlation(s *domain.Summary) error {
	m := s.Correlation
	header := append([]string{""}, m.Columns...)
	rows := make([][]any, len(m.Values))
	for i, values := range m.Values {
		row := make([]any, 0, len(values)+1)
		if i < len(m.Columns) {
			row = append(row, m.Columns[i])
		} else {
			row = append(row, "")
		}
		for _, v := range values {
			row = append(row, num(v))
		}
		rows[i] = row
	}
	return b.table(SheetCorrelation, header, rows)
}

func (b *book) hotspots(s *domain.Summary) error {
	rows := make([][]any, len(s.Hotspots))
	for i, h := range s.Hotspots {
		rows[i] = []any{
			i + 1, h.Label, h.Center.Lat, h.Center.Lng, h.Count,
			h.FormattedAddress, num(h.GeoConfidence), h.GeoSource,
		}
	}
	header := []string{"Rank", "Label", "Lat", "Lng", "Count", "Address", "Confidence", "Geo Source"}
	return b.table(SheetHotspots, header, rows)
}

// num leaves non-finite values as empty cells.
func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func intOrText(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
