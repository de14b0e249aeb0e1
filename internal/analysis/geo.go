package analysis

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// Heatmap defaults.
const (
	HeatPointCap = 10000
	MapZoom      = 5
)

// MapCenter is the geographic centre of the contiguous United States.
var MapCenter = domain.LatLng{Lat: 37.0902, Lng: -95.7129}

// HeatPoints returns the coordinates of the first limit rows, in table
// order, that have both Start_Lat and Start_Lng. It is a cap, not a sample.
func HeatPoints(t *domain.Table, limit int) ([]domain.LatLng, error) {
	return points(t, limit)
}

// AllPoints returns every row's coordinates in table order.
func AllPoints(t *domain.Table) ([]domain.LatLng, error) {
	return points(t, -1)
}

func points(t *domain.Table, limit int) ([]domain.LatLng, error) {
	lats, err := t.Floats(domain.ColStartLat)
	if err != nil {
		return nil, err
	}
	lngs, err := t.Floats(domain.ColStartLng)
	if err != nil {
		return nil, err
	}
	size := len(lats)
	if limit >= 0 {
		size = min(size, limit)
	}
	out := make([]domain.LatLng, 0, size)
	for i := range lats {
		if limit >= 0 && len(out) >= limit {
			break
		}
		if math.IsNaN(lats[i]) || math.IsNaN(lngs[i]) {
			continue
		}
		out = append(out, domain.LatLng{Lat: lats[i], Lng: lngs[i]})
	}
	return out, nil
}

// Hotspots bins points into square cells of cellDegrees and returns the n
// densest, each centred on the mean of its points. Ties are broken by cell
// key so the result is deterministic.
func Hotspots(points []domain.LatLng, cellDegrees float64, n int) []domain.Hotspot {
	if n <= 0 || cellDegrees <= 0 || len(points) == 0 {
		return nil
	}

	type cell struct{ row, col int }
	type acc struct {
		count    int
		lat, lng float64
	}
	cells := make(map[cell]*acc)
	for _, p := range points {
		k := cell{
			row: int(math.Floor(p.Lat / cellDegrees)),
			col: int(math.Floor(p.Lng / cellDegrees)),
		}
		a, ok := cells[k]
		if !ok {
			a = &acc{}
			cells[k] = a
		}
		a.count++
		a.lat += p.Lat
		a.lng += p.Lng
	}

	out := make([]domain.Hotspot, 0, len(cells))
	for k, a := range cells {
		out = append(out, domain.Hotspot{
			Cell:   fmt.Sprintf("%d:%d", k.row, k.col),
			Center: domain.LatLng{Lat: a.lat / float64(a.count), Lng: a.lng / float64(a.count)},
			Count:  a.count,
		})
	}
	slices.SortFunc(out, func(a, b domain.Hotspot) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Cell, b.Cell)
	})
	return out[:min(n, len(out))]
}
