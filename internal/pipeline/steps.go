package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/accident-eda/internal/analysis"
	"github.com/couchcryptid/accident-eda/internal/domain"
)

// Report artifact names, in step order.
const (
	FileSeverityByWeather     = "01_severity_by_weather.png"
	FileTopWeather            = "02_top_weather.png"
	FileAccidentsByHour       = "03_accidents_by_hour.png"
	FileAccidentsByWeekday    = "04_accidents_by_weekday.png"
	FileDistanceDistribution  = "05_distance_distribution.png"
	FileVisibilityVsSeverity  = "06_visibility_vs_severity.png"
	FileTemperatureVsSeverity = "07_temperature_vs_severity.png"
	FileDayVsNight            = "08_day_vs_night.png"
	FileCorrelationHeatmap    = "09_correlation_heatmap.png"
)

const (
	// weatherStacks is the number of weather categories drawn with their own
	// colour in the severity chart; the rest are folded into otherWeather.
	weatherStacks = 11
	otherWeather  = "Other"

	heatmapTitle = "Accident Hotspots"
)

func (p *Pipeline) steps() []step {
	return []step{
		{name: "severity_by_weather", artifact: FileSeverityByWeather, run: p.severityByWeather},
		{name: "top_weather", artifact: FileTopWeather, run: p.topWeather},
		{name: "accidents_by_hour", artifact: FileAccidentsByHour, run: p.accidentsByHour},
		{name: "accidents_by_weekday", artifact: FileAccidentsByWeekday, run: p.accidentsByWeekday},
		{name: "distance_distribution", artifact: FileDistanceDistribution, run: p.distanceDistribution},
		{name: "visibility_vs_severity", artifact: FileVisibilityVsSeverity, run: p.visibilityVsSeverity},
		{name: "temperature_vs_severity", artifact: FileTemperatureVsSeverity, run: p.temperatureVsSeverity},
		{name: "day_vs_night", artifact: FileDayVsNight, run: p.dayVsNight},
		{name: "correlation_heatmap", artifact: FileCorrelationHeatmap, run: p.correlationHeatmap},
		{name: "heatmap", artifact: p.opts.HeatmapFile, run: p.heatmap},
	}
}

// aggregateErr marks a failure to compute a step's data.
func aggregateErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrRender, err)
}

func (p *Pipeline) bars(ctx context.Context, file string, c domain.BarChart) error {
	if _, err := p.stages.Charts.RenderBars(ctx, file, c); err != nil {
		return err
	}
	p.printf("Saved %s\n", file)
	return nil
}

func (p *Pipeline) severityByWeather(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	counts, err := analysis.SeverityByWeather(t)
	if err != nil {
		return aggregateErr(err)
	}
	s.SeverityByWeather = counts
	return p.bars(ctx, FileSeverityByWeather, severityWeatherChart(counts))
}

// severityWeatherChart draws one stacked bar per severity with a segment per
// frequent weather category.
func severityWeatherChart(counts []domain.SeverityWeatherCount) domain.BarChart {
	totals := make(map[string]int)
	var severities []int
	for _, c := range counts {
		totals[c.Weather] += c.Count
		if !slices.Contains(severities, c.Severity) {
			severities = append(severities, c.Severity)
		}
	}
	slices.Sort(severities)

	weather := make([]string, 0, len(totals))
	for w := range totals {
		weather = append(weather, w)
	}
	slices.SortFunc(weather, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	stacks := weather
	if len(weather) > weatherStacks {
		stacks = append(slices.Clone(weather[:weatherStacks]), otherWeather)
	}
	stackIndex := make(map[string]int, len(weather))
	for i, w := range weather {
		stackIndex[w] = min(i, len(stacks)-1)
	}
	severityIndex := make(map[int]int, len(severities))
	categories := make([]string, len(severities))
	values := make([][]float64, len(severities))
	for i, sev := range severities {
		severityIndex[sev] = i
		categories[i] = domain.SeverityName(sev)
		values[i] = make([]float64, len(stacks))
	}
	for _, c := range counts {
		values[severityIndex[c.Severity]][stackIndex[c.Weather]] += float64(c.Count)
	}

	return domain.BarChart{
		Title:      "Accident Severity by Weather Condition",
		XLabel:     "Severity",
		YLabel:     "Count",
		Categories: categories,
		Stacks:     stacks,
		Values:     values,
		Palette:    domain.PaletteCategorical,
	}
}

func (p *Pipeline) topWeather(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	top, err := analysis.TopWeather(t, analysis.TopWeatherLimit)
	if err != nil {
		return aggregateErr(err)
	}
	s.TopWeather = top
	return p.bars(ctx, FileTopWeather, domain.BarChart{
		Title:      fmt.Sprintf("Top %d Weather Conditions", analysis.TopWeatherLimit),
		XLabel:     "Count",
		YLabel:     "Weather Condition",
		Horizontal: true,
		Categories: categoryNames(top, nil),
		Values:     categoryValues(top),
		Palette:    domain.PaletteViridis,
	})
}

func (p *Pipeline) accidentsByHour(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	hours, err := analysis.CountByHour(t)
	if err != nil {
		return aggregateErr(err)
	}
	s.ByHour = hours
	return p.bars(ctx, FileAccidentsByHour, domain.BarChart{
		Title:      "Accidents by Hour of Day",
		XLabel:     "Hour",
		YLabel:     "Count",
		Categories: categoryNames(hours, nil),
		Values:     categoryValues(hours),
		Palette:    domain.PaletteViridis,
	})
}

func (p *Pipeline) accidentsByWeekday(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	days, err := analysis.CountByWeekday(t)
	if err != nil {
		return aggregateErr(err)
	}
	s.ByWeekday = days
	return p.bars(ctx, FileAccidentsByWeekday, domain.BarChart{
		Title:      "Accidents by Day of Week",
		XLabel:     "Day of Week",
		YLabel:     "Count",
		Categories: categoryNames(days, domain.WeekdayName),
		Values:     categoryValues(days),
		Palette:    domain.PaletteSet2,
	})
}

func (p *Pipeline) distanceDistribution(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	h, err := analysis.DistanceHistogram(t)
	if err != nil {
		return aggregateErr(err)
	}
	s.Distance = h
	if h.Ignored > 0 {
		p.logger.Debug("null distances ignored", "count", h.Ignored)
	}
	if _, err := p.stages.Charts.RenderHistogram(ctx, FileDistanceDistribution, domain.HistogramChart{
		Title:     "Distribution of Accident Distance",
		XLabel:    "Distance (mi)",
		YLabel:    "Count",
		Histogram: h,
	}); err != nil {
		return err
	}
	p.printf("Saved %s\n", FileDistanceDistribution)
	return nil
}

func (p *Pipeline) visibilityVsSeverity(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	boxes, err := analysis.BoxBySeverity(t, domain.ColVisibility)
	if err != nil {
		return aggregateErr(err)
	}
	s.VisibilityBySeverity = boxes
	return p.boxPlot(ctx, FileVisibilityVsSeverity, "Visibility vs Severity", "Visibility (mi)", boxes)
}

func (p *Pipeline) temperatureVsSeverity(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	boxes, err := analysis.BoxBySeverity(t, domain.ColTemperature)
	if err != nil {
		return aggregateErr(err)
	}
	s.TemperatureBySeverity = boxes
	return p.boxPlot(ctx, FileTemperatureVsSeverity, "Temperature vs Severity", "Temperature (F)", boxes)
}

func (p *Pipeline) boxPlot(ctx context.Context, file, title, yLabel string, boxes []domain.BoxStats) error {
	if _, err := p.stages.Charts.RenderBoxPlot(ctx, file, domain.BoxPlotChart{
		Title:  title,
		XLabel: "Severity",
		YLabel: yLabel,
		Boxes:  boxes,
	}); err != nil {
		return err
	}
	p.printf("Saved %s\n", file)
	return nil
}

func (p *Pipeline) dayVsNight(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	periods, err := analysis.CountDayNight(t)
	if err != nil {
		return aggregateErr(err)
	}
	s.DayNight = periods
	return p.bars(ctx, FileDayVsNight, domain.BarChart{
		Title:      "Accidents: Day vs Night",
		XLabel:     "Sunrise/Sunset",
		YLabel:     "Count",
		Categories: categoryNames(periods, nil),
		Values:     categoryValues(periods),
		Palette:    domain.PaletteSet2,
	})
}

func (p *Pipeline) correlationHeatmap(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	m, err := analysis.Correlation(t, domain.NumericColumns)
	if err != nil {
		return aggregateErr(err)
	}
	s.Correlation = m
	if _, err := p.stages.Charts.RenderMatrix(ctx, FileCorrelationHeatmap, domain.MatrixChart{
		Title:  "Correlation Heatmap",
		Matrix: m,
		Min:    -1,
		Max:    1,
	}); err != nil {
		return err
	}
	p.printf("Saved %s\n", FileCorrelationHeatmap)
	return nil
}

// heatmap writes the density page for the first analysis.HeatPointCap
// locations, with the densest grid cells marked as hotspots.
func (p *Pipeline) heatmap(ctx context.Context, t *domain.Table, s *domain.Summary) error {
	points, err := analysis.HeatPoints(t, analysis.HeatPointCap)
	if err != nil {
		return aggregateErr(err)
	}
	all, err := analysis.AllPoints(t)
	if err != nil {
		return aggregateErr(err)
	}
	hotspots := analysis.Hotspots(all, p.opts.HotspotCellDegrees, p.opts.HotspotCount)
	hotspots = domain.LabelHotspots(ctx, hotspots, p.stages.Geocoder, p.logger)
	s.HeatPoints = len(points)
	s.Hotspots = hotspots

	m := domain.HeatMap{
		Title:       heatmapTitle,
		Center:      analysis.MapCenter,
		Zoom:        analysis.MapZoom,
		Points:      points,
		Hotspots:    hotspots,
		GeneratedAt: s.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if err := p.stages.Map.WriteHeatmap(ctx, m, filepath.Join(p.opts.OutputDir, p.opts.HeatmapFile)); err != nil {
		return err
	}
	p.printf("Heatmap saved as '%s'.\n", p.opts.HeatmapFile)
	return nil
}

// categoryNames returns display labels for counts. Numeric categories are
// passed through name when it is set.
func categoryNames(counts []domain.CategoryCount, name func(int) string) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Category
		if name == nil {
			continue
		}
		if n, err := strconv.Atoi(c.Category); err == nil {
			out[i] = name(n)
		}
	}
	return out
}

func categoryValues(counts []domain.CategoryCount) [][]float64 {
	out := make([][]float64, len(counts))
	for i, c := range counts {
		out[i] = []float64{float64(c.Count)}
	}
	return out
}
