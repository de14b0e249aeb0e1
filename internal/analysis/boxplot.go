package analysis

import (
	"math"
	"slices"
	"strconv"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// whiskerIQR is the Tukey fence multiplier.
const whiskerIQR = 1.5

// BoxBySeverity summarises a numeric column per severity level. Null values
// are skipped; levels without data are omitted.
func BoxBySeverity(t *domain.Table, column string) ([]domain.BoxStats, error) {
	values, err := t.Floats(column)
	if err != nil {
		return nil, err
	}
	severities, ok, err := t.Ints(domain.ColSeverity)
	if err != nil {
		return nil, err
	}

	groups := make(map[int][]float64)
	for i, v := range values {
		if !ok[i] || math.IsNaN(v) {
			continue
		}
		groups[severities[i]] = append(groups[severities[i]], v)
	}

	levels := make([]int, 0, len(groups))
	for s := range groups {
		levels = append(levels, s)
	}
	slices.Sort(levels)

	out := make([]domain.BoxStats, 0, len(levels))
	for _, s := range levels {
		out = append(out, NewBoxStats(strconv.Itoa(s), groups[s]))
	}
	return out, nil
}

// NewBoxStats computes quartiles by linear interpolation, whiskers at the
// most extreme values within 1.5·IQR of the box, and the distinct outliers
// beyond them. values is not modified.
func NewBoxStats(group string, values []float64) domain.BoxStats {
	b := domain.BoxStats{Group: group, N: len(values)}
	if len(values) == 0 {
		return b
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	b.Q1 = Quantile(sorted, 0.25)
	b.Median = Quantile(sorted, 0.5)
	b.Q3 = Quantile(sorted, 0.75)
	iqr := b.Q3 - b.Q1
	lowFence := b.Q1 - whiskerIQR*iqr
	highFence := b.Q3 + whiskerIQR*iqr

	b.LowerWhisker = b.Q1
	b.UpperWhisker = b.Q3
	for _, v := range sorted {
		if v >= lowFence {
			b.LowerWhisker = min(v, b.Q1)
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= highFence {
			b.UpperWhisker = max(sorted[i], b.Q3)
			break
		}
	}

	for _, v := range sorted {
		if v >= lowFence && v <= highFence {
			continue
		}
		b.OutlierCount++
		if n := len(b.Outliers); n == 0 || b.Outliers[n-1] != v {
			b.Outliers = append(b.Outliers, v)
		}
	}
	return b
}

// Quantile returns the q-th quantile of an ascending slice using linear
// interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
