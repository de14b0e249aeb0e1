package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

const (
	valueTicks   = 6
	legendSwatch = 12
	legendRow    = 18
	colorbarW    = 18
	barFill      = 0.8
	boxFill      = 0.5
)

var errCanvasTooSmall = errors.New("canvas too small for chart")

// checkBars rejects ragged value rows and negative or NaN counts.
func checkBars(spec domain.BarChart) error {
	n := len(spec.Categories)
	if len(spec.Values) != n {
		return fmt.Errorf("%d categories but %d value rows", n, len(spec.Values))
	}
	perRow := max(1, len(spec.Stacks))
	for i, row := range spec.Values {
		if len(row) != perRow {
			return fmt.Errorf("category %q has %d values, want %d", spec.Categories[i], len(row), perRow)
		}
		for _, v := range row {
			if math.IsNaN(v) || v < 0 {
				return fmt.Errorf("category %q has invalid count %v", spec.Categories[i], v)
			}
		}
	}
	return nil
}

// maxStack is the tallest bar, stacked segments summed.
func maxStack(values [][]float64) float64 {
	var top float64
	for _, row := range values {
		var total float64
		for _, v := range row {
			total += v
		}
		top = math.Max(top, total)
	}
	return top
}

// drawBars draws a checked bar spec on the canvas.
func drawBars(c *canvas, spec domain.BarChart) error {
	n := len(spec.Categories)
	stacked := len(spec.Stacks) > 0
	perRow := max(1, len(spec.Stacks))
	maxTotal := maxStack(spec.Values)

	var fills []drawing.Color
	if stacked {
		palette := spec.Palette
		if palette == domain.PaletteDefault || palette == "" {
			palette = domain.PaletteCategorical
		}
		fills = colors(palette, perRow)
	} else {
		fills = colors(spec.Palette, n)
	}
	fill := func(category, stack int) drawing.Color {
		if stacked {
			return fills[stack]
		}
		return fills[category]
	}

	c.title(spec.Title)
	legendW := 0
	if stacked {
		legendW = legendWidth(c, spec.Stacks)
	}

	if spec.Horizontal {
		horizontalBars(c, spec, maxTotal, legendW, fill)
	} else {
		verticalBars(c, spec, maxTotal, legendW, fill)
	}
	if stacked {
		drawLegend(c, spec.Stacks, fills, legendW)
	}
	return nil
}

func verticalBars(c *canvas, spec domain.BarChart, maxTotal float64, legendW int, fill func(int, int) drawing.Color) {
	n := len(spec.Categories)
	top := 2*padding + int(titleSize)
	right := padding + legendW
	sizing := newScale(0, maxTotal, 0, 1, valueTicks)
	left := 2*padding + int(labelSize) + c.tickLabelWidth(sizing) + tickLen + 4

	labelW, labelH := 0, 0
	for _, cat := range spec.Categories {
		w, h := c.measure(cat, tickSize)
		labelW, labelH = max(labelW, w), max(labelH, h)
	}
	band := 1.0
	if n > 0 {
		band = float64(c.width-left-right) / float64(n)
	}
	rotate := float64(labelW) > band*0.95
	bottom := 2*padding + int(labelSize) + tickLen + labelH + 6
	if rotate {
		bottom = 2*padding + int(labelSize) + tickLen + labelW + 6
	}
	c.setPlot(top, left, right, bottom)

	if n == 0 {
		noData(c)
		c.frame()
		return
	}

	ys := newScale(0, maxTotal, c.plot.Bottom, c.plot.Top, valueTicks)
	c.yAxis(ys)
	band = float64(c.plot.Width()) / float64(n)
	gap := band * (1 - barFill) / 2
	for i, cat := range spec.Categories {
		x0 := c.plot.Left + int(math.Round(float64(i)*band+gap))
		x1 := c.plot.Left + int(math.Round(float64(i+1)*band-gap))
		var base float64
		for s, v := range spec.Values[i] {
			if v <= 0 {
				continue
			}
			c.outlineRect(x0, ys.px(base+v), x1, ys.px(base), fill(i, s), drawing.ColorWhite)
			base += v
		}

		cx := (x0 + x1) / 2
		if rotate {
			w, h := c.measure(cat, tickSize)
			c.textUp(cat, cx+h/2, c.plot.Bottom+tickLen+4+w, tickSize, colorText)
		} else {
			c.textCentered(cat, cx, c.plot.Bottom+tickLen+4+labelH/2, tickSize, colorText)
		}
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)
}

func horizontalBars(c *canvas, spec domain.BarChart, maxTotal float64, legendW int, fill func(int, int) drawing.Color) {
	n := len(spec.Categories)
	labelW := 0
	for _, cat := range spec.Categories {
		w, _ := c.measure(cat, tickSize)
		labelW = max(labelW, w)
	}
	top := 2*padding + int(titleSize)
	left := 2*padding + int(labelSize) + labelW + tickLen + 4
	right := 2*padding + legendW
	bottom := 2*padding + int(labelSize) + tickLen + 2*int(tickSize)
	c.setPlot(top, left, right, bottom)

	if n == 0 {
		noData(c)
		c.frame()
		return
	}

	xs := newScale(0, maxTotal, c.plot.Left, c.plot.Right, valueTicks)
	c.xAxis(xs)
	band := float64(c.plot.Height()) / float64(n)
	gap := band * (1 - barFill) / 2
	for i, cat := range spec.Categories {
		y0 := c.plot.Top + int(math.Round(float64(i)*band+gap))
		y1 := c.plot.Top + int(math.Round(float64(i+1)*band-gap))
		var base float64
		for s, v := range spec.Values[i] {
			if v <= 0 {
				continue
			}
			c.outlineRect(xs.px(base), y0, xs.px(base+v), y1, fill(i, s), drawing.ColorWhite)
			base += v
		}
		c.textRight(cat, c.plot.Left-tickLen-3, (y0+y1)/2, tickSize, colorText)
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)
}

func legendWidth(c *canvas, names []string) int {
	widest := 0
	for _, name := range names {
		w, _ := c.measure(name, tickSize)
		widest = max(widest, w)
	}
	return widest + legendSwatch + 6 + 2*padding
}

func drawLegend(c *canvas, names []string, fills []drawing.Color, width int) {
	x := c.width - width + padding/2
	y := c.plot.Top
	for i, name := range names {
		c.outlineRect(x, y, x+legendSwatch, y+legendSwatch, fills[i], colorAxis)
		c.text(name, x+legendSwatch+6, y+legendSwatch-1, tickSize, colorText)
		y += legendRow
	}
}

// drawEmpty draws the frame of a chart with no data.
func drawEmpty(c *canvas, title, xLabel, yLabel string) {
	c.title(title)
	top := 2*padding + int(titleSize)
	bottom := 2*padding + int(labelSize) + tickLen + 2*int(tickSize)
	c.setPlot(top, 2*padding+int(labelSize)+tickLen, 2*padding, bottom)
	noData(c)
	c.frame()
	c.xLabel(xLabel)
	c.yLabel(yLabel)
}

func drawBoxPlot(c *canvas, spec domain.BoxPlotChart) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range spec.Boxes {
		if b.N == 0 {
			continue
		}
		lo = math.Min(lo, b.LowerWhisker)
		hi = math.Max(hi, b.UpperWhisker)
		for _, v := range b.Outliers {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	empty := math.IsInf(lo, 1)
	if empty {
		lo, hi = 0, 1
	}
	pad := (hi - lo) * 0.05
	lo, hi = lo-pad, hi+pad

	c.title(spec.Title)
	sizing := newScale(lo, hi, 0, 1, valueTicks)
	labelH := 0
	for _, b := range spec.Boxes {
		_, h := c.measure(b.Group, tickSize)
		labelH = max(labelH, h)
	}
	top := 2*padding + int(titleSize)
	left := 2*padding + int(labelSize) + c.tickLabelWidth(sizing) + tickLen + 4
	bottom := 2*padding + int(labelSize) + tickLen + labelH + 6
	c.setPlot(top, left, 2*padding, bottom)

	if empty {
		noData(c)
		c.frame()
		return nil
	}

	ys := newScale(lo, hi, c.plot.Bottom, c.plot.Top, valueTicks)
	c.yAxis(ys)
	band := float64(c.plot.Width()) / float64(len(spec.Boxes))
	for i, b := range spec.Boxes {
		center := c.plot.Left + int(math.Round((float64(i)+0.5)*band))
		c.textCentered(b.Group, center, c.plot.Bottom+tickLen+4+labelH/2, tickSize, colorText)
		if b.N == 0 {
			continue
		}
		half := int(band * boxFill / 2)
		capHalf := half / 2

		c.line(center, ys.px(b.LowerWhisker), center, ys.px(b.Q1), colorAxis, 1)
		c.line(center, ys.px(b.Q3), center, ys.px(b.UpperWhisker), colorAxis, 1)
		c.line(center-capHalf, ys.px(b.LowerWhisker), center+capHalf, ys.px(b.LowerWhisker), colorAxis, 1)
		c.line(center-capHalf, ys.px(b.UpperWhisker), center+capHalf, ys.px(b.UpperWhisker), colorAxis, 1)

		c.outlineRect(center-half, ys.px(b.Q3), center+half, ys.px(b.Q1), set2[i%len(set2)], colorAxis)
		c.line(center-half, ys.px(b.Median), center+half, ys.px(b.Median), colorAxis, 2)

		for _, v := range b.Outliers {
			c.circle(center, ys.px(v), 2.5, drawing.ColorWhite, colorAxis)
		}
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)
	return nil
}

func drawMatrix(c *canvas, spec domain.MatrixChart) error {
	m := spec.Matrix
	n := len(m.Columns)
	if len(m.Values) != n {
		return fmt.Errorf("%d columns but %d rows", n, len(m.Values))
	}
	for i, row := range m.Values {
		if len(row) != n {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), n)
		}
	}
	if !(spec.Max > spec.Min) {
		return fmt.Errorf("invalid colour range [%v, %v]", spec.Min, spec.Max)
	}

	c.title(spec.Title)
	labelW := 0
	for _, col := range m.Columns {
		w, _ := c.measure(col, tickSize)
		labelW = max(labelW, w)
	}
	barTicks, decimals := niceTicks(spec.Min, spec.Max, 5)
	barScale := scale{decimals: decimals}
	barLabelW := 0
	for _, v := range barTicks {
		w, _ := c.measure(barScale.label(v), tickSize)
		barLabelW = max(barLabelW, w)
	}

	top := 2*padding + int(titleSize)
	left := padding + labelW + 8
	reserveRight := padding + 20 + colorbarW + tickLen + 4 + barLabelW
	bottom := padding + labelW + 8
	if n == 0 {
		c.setPlot(top, left, reserveRight, bottom)
		noData(c)
		return nil
	}
	side := min(c.width-left-reserveRight, c.height-top-bottom)
	cell := side / n
	if cell < 4 {
		return errCanvasTooSmall
	}
	c.setPlot(top, left, c.width-left-cell*n, c.height-top-cell*n)

	annot := math.Min(11, float64(cell)/4.5)
	for i := range n {
		for j := range n {
			v := m.Values[i][j]
			x0, y0 := c.plot.Left+j*cell, c.plot.Top+i*cell
			fill := coolwarm(v, spec.Min, spec.Max)
			c.outlineRect(x0, y0, x0+cell, y0+cell, fill, drawing.ColorWhite)
			if annot < 6 {
				continue
			}
			label := "n/a"
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
			}
			ink := colorText
			if luminance(fill) < 0.5 {
				ink = drawing.ColorWhite
			}
			c.textCentered(label, x0+cell/2, y0+cell/2, annot, ink)
		}
	}

	for i, col := range m.Columns {
		mid := c.plot.Top + i*cell + cell/2
		c.textRight(col, c.plot.Left-6, mid, tickSize, colorText)

		w, h := c.measure(col, tickSize)
		x := c.plot.Left + i*cell + cell/2
		c.textUp(col, x+h/2, c.plot.Bottom+6+w, tickSize, colorText)
	}

	drawColorbar(c, spec.Min, spec.Max, barTicks, barScale)
	return nil
}

// drawColorbar draws the diverging scale to the right of the plot area.
func drawColorbar(c *canvas, lo, hi float64, ticks []float64, labels scale) {
	x0 := c.plot.Right + 20
	x1 := x0 + colorbarW
	height := c.plot.Height()
	for y := range height {
		v := hi - (hi-lo)*float64(y)/float64(max(1, height-1))
		c.fillRect(x0, c.plot.Top+y, x1, c.plot.Top+y+1, coolwarm(v, lo, hi))
	}
	bar := scale{lo: lo, hi: hi, pxLo: c.plot.Bottom, pxHi: c.plot.Top}
	for _, v := range ticks {
		if v < lo || v > hi {
			continue
		}
		y := bar.px(v)
		c.line(x1, y, x1+tickLen, y, colorAxis, 1)
		c.text(labels.label(v), x1+tickLen+4, y+int(tickSize)/2, tickSize, colorText)
	}
}

func noData(c *canvas) {
	c.textCentered("No data", (c.plot.Left+c.plot.Right)/2, (c.plot.Top+c.plot.Bottom)/2, labelSize, colorText)
}
