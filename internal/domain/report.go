package domain

import (
	"strconv"
	"time"
)

// severityNames labels the ordinal Severity scale.
var severityNames = map[int]string{
	1: "Low",
	2: "Moderate",
	3: "High",
	4: "Very High",
}

// SeverityName returns the display name for a severity level, or its number
// when outside 1–4.
func SeverityName(severity int) string {
	if name, ok := severityNames[severity]; ok {
		return name
	}
	return strconv.Itoa(severity)
}

// WeekdayName returns the English day name for a Monday-based index 0–6.
func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return strconv.Itoa(day)
	}
	return time.Weekday((day + 1) % 7).String()
}

// MonthName returns the English month name for 1–12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return strconv.Itoa(month)
	}
	return time.Month(month).String()
}

// CategoryCount is one bar of a count plot.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SeverityWeatherCount is the number of rows for one (Severity, Weather) pair.
type SeverityWeatherCount struct {
	Severity int    `json:"severity"`
	Weather  string `json:"weather"`
	Count    int    `json:"count"`
}

// Point is an (x, y) sample of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Histogram holds equal-width bin counts and a density curve scaled to the
// same units as the counts.
type Histogram struct {
	Edges   []float64 `json:"edges"`
	Counts  []int     `json:"counts"`
	Density []Point   `json:"density,omitempty"`
	Ignored int       `json:"ignored"`
}

// BoxStats is the five-number summary of one group plus its outliers.
type BoxStats struct {
	Group        string    `json:"group"`
	N            int       `json:"n"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	OutlierCount int       `json:"outlier_count"`
	Outliers     []float64 `json:"outliers,omitempty"` // distinct values
}

// CorrelationMatrix is a square Pearson correlation matrix. Undefined
// entries are NaN.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two named columns.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// LatLng is a WGS-84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Hotspot is a dense grid cell of accident locations.
type Hotspot struct {
	Cell             string  `json:"cell"`
	Center           LatLng  `json:"center"`
	Count            int     `json:"count"`
	Label            string  `json:"label"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// StepResult records the outcome of one report step.
type StepResult struct {
	Name     string        `json:"name"`
	Artifact string        `json:"artifact,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == nil }

// Summary collects everything a run computed, for the workbook export.
type Summary struct {
	RunID       string     `json:"run_id"`
	Source      string     `json:"source"`
	GeneratedAt time.Time  `json:"generated_at"`
	Clean       CleanStats `json:"clean"`

	SeverityByWeather     []SeverityWeatherCount `json:"severity_by_weather"`
	TopWeather            []CategoryCount        `json:"top_weather"`
	ByHour                []CategoryCount        `json:"by_hour"`
	ByWeekday             []CategoryCount        `json:"by_weekday"`
	ByMonth               []CategoryCount        `json:"by_month"`
	Distance              Histogram              `json:"distance"`
	VisibilityBySeverity  []BoxStats             `json:"visibility_by_severity"`
	TemperatureBySeverity []BoxStats             `json:"temperature_by_severity"`
	DayNight              []CategoryCount        `json:"day_night"`
	Correlation           CorrelationMatrix      `json:"correlation"`

	HeatPoints int       `json:"heat_points"`
	Hotspots   []Hotspot `json:"hotspots"`

	Steps []StepResult `json:"steps"`
}

// Failed returns the steps that ended in error.
func (s *Summary) Failed() []StepResult {
	var out []StepResult
	for _, r := range s.Steps {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
