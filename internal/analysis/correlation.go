package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// Correlation computes the pairwise Pearson correlation matrix of the given
// numeric columns. Each pair uses the rows where both values are present; a
// pair with fewer than two such rows or zero variance is NaN.
func Correlation(t *domain.Table, columns []string) (domain.CorrelationMatrix, error) {
	data := make([][]float64, len(columns))
	for i, c := range columns {
		values, err := t.Floats(c)
		if err != nil {
			return domain.CorrelationMatrix{}, err
		}
		data[i] = values
	}

	m := domain.CorrelationMatrix{
		Columns: append([]string(nil), columns...),
		Values:  make([][]float64, len(columns)),
	}
	for i := range columns {
		m.Values[i] = make([]float64, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			r := Pearson(data[i], data[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

// Pearson returns the linear correlation of x and y over the indices where
// neither is NaN. It is NaN for fewer than two such rows or a constant
// column, and is clamped to [-1, 1].
func Pearson(x, y []float64) float64 {
	n := min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := range n {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}

func constant(values []float64) bool {
	return floats.Min(values) == floats.Max(values)
}
