// Package analysis computes the aggregates behind each accident report.
// Every function is a pure read of a cleaned domain.Table.
package analysis

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// TopWeatherLimit is the number of weather categories in the top-N report.
const TopWeatherLimit = 10

// Frequencies counts non-empty values of a categorical column, most frequent
// first. Ties are broken by category name so the order is deterministic.
func Frequencies(t *domain.Table, column string) ([]domain.CategoryCount, error) {
	values, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]domain.CategoryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CategoryCount{Category: k, Count: n})
	}
	sortByCount(out)
	return out, nil
}

// TopWeather returns the n most frequent Weather_Condition values in
// descending order of frequency. The result has min(n, distinct) entries.
func TopWeather(t *domain.Table, n int) ([]domain.CategoryCount, error) {
	freq, err := Frequencies(t, domain.ColWeather)
	if err != nil {
		return nil, err
	}
	return TopN(freq, n), nil
}

// TopN returns the first n entries of a frequency list sorted by sortByCount.
func TopN(freq []domain.CategoryCount, n int) []domain.CategoryCount {
	if n < 0 {
		n = 0
	}
	return slices.Clone(freq[:min(n, len(freq))])
}

// SeverityByWeather counts rows per (Severity, Weather_Condition), ordered by
// severity and then by the weather category's overall frequency.
func SeverityByWeather(t *domain.Table) ([]domain.SeverityWeatherCount, error) {
	severities, ok, err := t.Ints(domain.ColSeverity)
	if err != nil {
		return nil, err
	}
	weather, err := t.Strings(domain.ColWeather)
	if err != nil {
		return nil, err
	}
	freq, err := Frequencies(t, domain.ColWeather)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(freq))
	for i, f := range freq {
		rank[f.Category] = i
	}

	type key struct {
		severity int
		weather  string
	}
	counts := make(map[key]int)
	for i, s := range severities {
		if !ok[i] || weather[i] == "" {
			continue
		}
		counts[key{s, weather[i]}]++
	}

	out := make([]domain.SeverityWeatherCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.SeverityWeatherCount{Severity: k.severity, Weather: k.weather, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.SeverityWeatherCount) int {
		if c := cmp.Compare(a.Severity, b.Severity); c != 0 {
			return c
		}
		return cmp.Compare(rank[a.Weather], rank[b.Weather])
	})
	return out, nil
}

// CountByHour counts rows per hour of day, zero-filled for hours 0–23.
func CountByHour(t *domain.Table) ([]domain.CategoryCount, error) {
	return countRange(t, domain.ColHour, 0, 23)
}

// CountByWeekday counts rows per weekday, zero-filled for 0 (Monday) to 6.
func CountByWeekday(t *domain.Table) ([]domain.CategoryCount, error) {
	return countRange(t, domain.ColWeekday, 0, 6)
}

// CountByMonth counts rows per month, zero-filled for 1–12.
func CountByMonth(t *domain.Table) ([]domain.CategoryCount, error) {
	return countRange(t, domain.ColMonth, 1, 12)
}

func countRange(t *domain.Table, column string, lo, hi int) ([]domain.CategoryCount, error) {
	values, ok, err := t.Ints(column)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryCount, hi-lo+1)
	for i := range out {
		out[i].Category = strconv.Itoa(lo + i)
	}
	for i, v := range values {
		if !ok[i] || v < lo || v > hi {
			continue
		}
		out[v-lo].Count++
	}
	return out, nil
}

// CountDayNight counts Sunrise_Sunset values. "Day" and "Night" come first
// when present; any other value follows in order of first appearance.
func CountDayNight(t *domain.Table) ([]domain.CategoryCount, error) {
	values, err := t.Strings(domain.ColSunriseSunset)
	if err != nil {
		return nil, err
	}
	order := []string{"Day", "Night"}
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, seen := counts[v]; !seen && !slices.Contains(order, v) {
			order = append(order, v)
		}
		counts[v]++
	}
	out := make([]domain.CategoryCount, 0, len(order))
	for _, k := range order {
		if n, ok := counts[k]; ok {
			out = append(out, domain.CategoryCount{Category: k, Count: n})
		}
	}
	return out, nil
}

// Severities returns the distinct non-null severity levels, ascending.
func Severities(t *domain.Table) ([]int, error) {
	values, ok, err := t.Ints(domain.ColSeverity)
	if err != nil {
		return nil, err
	}
	var out []int
	for i, v := range values {
		if ok[i] && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

func sortByCount(c []domain.CategoryCount) {
	slices.SortFunc(c, func(a, b domain.CategoryCount) int {
		if n := cmp.Compare(b.Count, a.Count); n != 0 {
			return n
		}
		return cmp.Compare(a.Category, b.Category)
	})
}
