package domain

// Palette names a colour scheme for categorical bars.
type Palette string

const (
	PaletteDefault     Palette = "default"     // single blue
	PaletteViridis     Palette = "viridis"     // sequential, one colour per bar
	PaletteSet2        Palette = "set2"        // qualitative pastel
	PaletteCategorical Palette = "categorical" // qualitative, for stacked segments
)

// BarChart describes a count plot. Values is indexed [category][stack]; a
// chart without Stacks has exactly one value per category.
type BarChart struct {
	Title      string
	XLabel     string
	YLabel     string
	Horizontal bool
	Categories []string
	Stacks     []string
	Values     [][]float64
	Palette    Palette
}

// HistogramChart describes a histogram with an optional density overlay.
type HistogramChart struct {
	Title     string
	XLabel    string
	YLabel    string
	Histogram Histogram
}

// BoxPlotChart describes one box per group.
type BoxPlotChart struct {
	Title  string
	XLabel string
	YLabel string
	Boxes  []BoxStats
}

// MatrixChart describes an annotated matrix heatmap on a diverging scale
// fixed to [Min, Max] and centred at zero.
type MatrixChart struct {
	Title  string
	Matrix CorrelationMatrix
	Min    float64
	Max    float64
}

// HeatMap describes the geographic density page.
type HeatMap struct {
	Title       string
	Center      LatLng
	Zoom        int
	Points      []LatLng
	Hotspots    []Hotspot
	GeneratedAt string
}
