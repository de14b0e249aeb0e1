package render

import (
	"fmt"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// plotPadding leaves room for the title above and the axis name below.
var plotPadding = gochart.Box{
	Top:    3*padding + int(titleSize),
	Left:   2 * padding,
	Right:  padding,
	Bottom: 3*padding + int(labelSize),
}

// barPlot lays a single-series vertical count plot out as a go-chart
// BarChart. Bars share the plot width evenly.
func barPlot(spec domain.BarChart, width, height int) gochart.BarChart {
	n := len(spec.Categories)
	fills := colors(spec.Palette, n)
	bars := make([]gochart.Value, n)
	for i, cat := range spec.Categories {
		bars[i] = gochart.Value{
			Label: cat,
			Value: spec.Values[i][0],
			Style: gochart.Style{FillColor: fills[i], StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		}
	}

	// BarChart draws the y axis after the bars, so grid lines would cover them.
	axis := valueAxis(spec.YLabel, 0, maxStack(spec.Values))
	axis.GridMajorStyle = gochart.Hidden()
	axis.GridMinorStyle = gochart.Hidden()

	band := float64(width-plotPadding.Left-plotPadding.Right-4*padding) / float64(n)
	return gochart.BarChart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{FontSize: titleSize, FontColor: colorText},
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: plotPadding},
		BarWidth:   max(2, int(band*barFill)),
		BarSpacing: max(1, int(band*(1-barFill))),
		XAxis:      gochart.Style{FontSize: tickSize, FontColor: colorText},
		YAxis:      axis,
		Bars:       bars,
		Elements:   []gochart.Renderable{axisName(spec.XLabel, height)},
	}
}

// histogramPlot draws the bins as a go-chart HistogramSeries with the
// density curve as a ContinuousSeries on the same axes. The x range is the
// exact bin span so each bar is one bin wide.
func histogramPlot(spec domain.HistogramChart, width, height int) (gochart.Chart, error) {
	h := spec.Histogram
	lo, hi := h.Edges[0], h.Edges[len(h.Edges)-1]
	if !(hi > lo) {
		return gochart.Chart{}, fmt.Errorf("invalid bin range [%v, %v]", lo, hi)
	}

	centers := make([]float64, len(h.Counts))
	counts := make([]float64, len(h.Counts))
	var top float64
	for i, n := range h.Counts {
		centers[i] = (h.Edges[i] + h.Edges[i+1]) / 2
		counts[i] = float64(n)
		top = math.Max(top, counts[i])
	}

	series := []gochart.Series{
		gochart.HistogramSeries{
			Name:        "count",
			Style:       gochart.Style{FillColor: tab10[0], StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
			InnerSeries: gochart.ContinuousSeries{XValues: centers, YValues: counts},
		},
	}

	var xs, ys []float64
	for _, p := range h.Density {
		if math.IsNaN(p.Y) || math.IsNaN(p.X) {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
		top = math.Max(top, p.Y)
	}
	if len(xs) > 1 {
		series = append(series, gochart.ContinuousSeries{
			Name:    "density",
			Style:   gochart.Style{StrokeColor: colorCurve, StrokeWidth: 2},
			XValues: xs,
			YValues: ys,
		})
	}

	_, decimals := niceTicks(lo, hi, 8)
	return gochart.Chart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{FontSize: titleSize, FontColor: colorText},
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: plotPadding},
		XAxis: gochart.XAxis{
			Name:           spec.XLabel,
			NameStyle:      gochart.Style{FontSize: labelSize, FontColor: colorText},
			Style:          gochart.Style{FontSize: tickSize, FontColor: colorText},
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: decimalFormatter(decimals),
		},
		YAxis:  valueAxis(spec.YLabel, 0, top),
		Series: series,
	}, nil
}

// valueAxis is a count axis with round ticks from lo to just above hi.
func valueAxis(name string, lo, hi float64) gochart.YAxis {
	values, decimals := niceTicks(lo, hi, valueTicks)
	s := scale{decimals: decimals}
	ticks := make([]gochart.Tick, len(values))
	for i, v := range values {
		ticks[i] = gochart.Tick{Value: v, Label: s.label(v)}
	}
	return gochart.YAxis{
		Name:      name,
		NameStyle: gochart.Style{FontSize: labelSize, FontColor: colorText},
		Style:     gochart.Style{FontSize: tickSize, FontColor: colorText},
		Range:     &gochart.ContinuousRange{Min: values[0], Max: values[len(values)-1]},
		Ticks:     ticks,

		GridMajorStyle: gochart.Style{StrokeColor: colorGrid, StrokeWidth: 1},
		GridMinorStyle: gochart.Style{StrokeColor: colorGrid, StrokeWidth: 1},
	}
}

func decimalFormatter(decimals int) gochart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', decimals, 64)
		}
		return fmt.Sprint(v)
	}
}

// axisName draws an x-axis title centred under the plot. BarChart has no
// axis name of its own.
func axisName(text string, height int) gochart.Renderable {
	return func(r gochart.Renderer, box gochart.Box, defaults gochart.Style) {
		if text == "" {
			return
		}
		style := gochart.Style{Font: defaults.Font, FontSize: labelSize, FontColor: colorText}
		tb := gochart.Draw.MeasureText(r, text, style)
		cx, _ := box.Center()
		gochart.Draw.Text(r, text, cx-tb.Width()/2, height-padding, style)
	}
}
