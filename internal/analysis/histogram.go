package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

const (
	// DistanceBins is the bin count of the distance histogram.
	DistanceBins = 50

	// densityPoints is the resolution of the density curve.
	densityPoints = 200

	// kdeGridBins pre-bins large samples before kernel smoothing.
	kdeGridBins = 1024
)

// DistanceHistogram bins Distance(mi) into DistanceBins equal-width bins and
// overlays a kernel density estimate. Null distances are ignored.
func DistanceHistogram(t *domain.Table) (domain.Histogram, error) {
	values, err := t.Floats(domain.ColDistance)
	if err != nil {
		return domain.Histogram{}, err
	}
	return NewHistogram(values, DistanceBins), nil
}

// NewHistogram counts finite values into bins equal-width bins spanning the
// data range; the last bin includes its upper edge. A degenerate range is
// widened to ±0.5 around the single value.
func NewHistogram(values []float64, bins int) domain.Histogram {
	finite := finiteValues(values)
	h := domain.Histogram{Ignored: len(values) - len(finite)}
	if len(finite) == 0 || bins <= 0 {
		return h
	}

	lo, hi := floats.Min(finite), floats.Max(finite)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	h.Edges = make([]float64, bins+1)
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi

	h.Counts = make([]int, bins)
	for _, v := range finite {
		h.Counts[binIndex(v, lo, width, bins)]++
	}

	curve := KDE(finite, lo, hi, densityPoints)
	scale := float64(len(finite)) * width
	for i := range curve {
		curve[i].Y *= scale
	}
	h.Density = curve
	return h
}

// KDE evaluates a Gaussian kernel density estimate with Scott's bandwidth at
// points evenly spaced over [lo, hi]. The sample is first binned onto a fine
// grid, which keeps the cost independent of sample size. It returns nil when
// the bandwidth is zero.
func KDE(values []float64, lo, hi float64, points int) []domain.Point {
	n := len(values)
	if n < 2 || points < 2 || hi <= lo {
		return nil
	}
	bw := stat.StdDev(values, nil) * math.Pow(float64(n), -0.2)
	if bw == 0 || math.IsNaN(bw) {
		return nil
	}

	gridWidth := (hi - lo) / kdeGridBins
	weights := make([]float64, kdeGridBins)
	for _, v := range values {
		weights[binIndex(v, lo, gridWidth, kdeGridBins)]++
	}

	norm := 1 / (float64(n) * bw * math.Sqrt(2*math.Pi))
	step := (hi - lo) / float64(points-1)
	curve := make([]domain.Point, points)
	for i := range curve {
		x := lo + float64(i)*step
		var sum float64
		for j, w := range weights {
			if w == 0 {
				continue
			}
			c := lo + (float64(j)+0.5)*gridWidth
			z := (x - c) / bw
			if z > 8 || z < -8 {
				continue
			}
			sum += w * math.Exp(-0.5*z*z)
		}
		curve[i] = domain.Point{X: x, Y: sum * norm}
	}
	return curve
}

func binIndex(v, lo, width float64, bins int) int {
	i := int((v - lo) / width)
	if i >= bins {
		i = bins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
