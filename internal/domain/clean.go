package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
)

// StartTimeLayout is the canonical form Start_Time is rewritten to.
const StartTimeLayout = "2006-01-02 15:04:05"

// startTimeLayouts are tried in order. time.Parse accepts a fractional
// second after the seconds field even when the layout omits it.
var startTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// CleanStats summarises what Clean kept and dropped.
type CleanStats struct {
	Loaded           int `json:"loaded"`
	MissingRequired  int `json:"missing_required"`
	InvalidStartTime int `json:"invalid_start_time"`
	Retained         int `json:"retained"`
}

// Dropped returns the total number of rows removed.
func (s CleanStats) Dropped() int {
	return s.MissingRequired + s.InvalidStartTime
}

// ParseStartTime parses an accident timestamp. Surrounding whitespace is
// ignored; the second return is false when no layout matches. A UTC offset
// is kept, so the wall-clock fields stay local to the record.
func ParseStartTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Weekday returns the ISO-style weekday index: 0=Monday … 6=Sunday.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Clean projects raw onto CleanColumns, drops rows with a null required
// value or an unparseable Start_Time, and derives Hour, Month and Weekday.
// raw is left untouched; the result shares no mutable state with it.
func Clean(raw *RawTable) (*Table, CleanStats, error) {
	stats := CleanStats{Loaded: raw.Len()}

	df := raw.frame.Select(CleanColumns)
	if df.Err != nil {
		return nil, stats, fmt.Errorf("%w: project columns: %w", ErrDataLoad, df.Err)
	}

	n := df.Nrow()
	missing := make([]bool, n)
	for _, name := range RequiredColumns {
		col := df.Col(name)
		for i := range n {
			if col.Elem(i).IsNA() {
				missing[i] = true
			}
		}
	}

	starts := df.Col(ColStartTime)
	keep := make([]int, 0, n)
	times := make([]time.Time, 0, n)
	for i := range n {
		if missing[i] {
			stats.MissingRequired++
			continue
		}
		el := starts.Elem(i)
		if el.IsNA() {
			stats.InvalidStartTime++
			continue
		}
		ts, ok := ParseStartTime(el.String())
		if !ok {
			stats.InvalidStartTime++
			continue
		}
		keep = append(keep, i)
		times = append(times, ts)
	}

	cleaned := df.Subset(keep)

	canonical := make([]string, len(times))
	hours := make([]int, len(times))
	months := make([]int, len(times))
	weekdays := make([]int, len(times))
	for i, ts := range times {
		canonical[i] = ts.Format(StartTimeLayout)
		hours[i] = ts.Hour()
		months[i] = int(ts.Month())
		weekdays[i] = Weekday(ts)
	}

	cleaned = cleaned.
		Mutate(series.New(canonical, series.String, ColStartTime)).
		Mutate(series.New(hours, series.Int, ColHour)).
		Mutate(series.New(months, series.Int, ColMonth)).
		Mutate(series.New(weekdays, series.Int, ColWeekday))
	if cleaned.Err != nil {
		return nil, stats, fmt.Errorf("%w: derive calendar fields: %w", ErrDataLoad, cleaned.Err)
	}

	stats.Retained = cleaned.Nrow()
	return &Table{frame: cleaned, startTimes: times}, stats, nil
}
