package render

import (
	"bytes"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	titleSize = 16.0
	labelSize = 12.0
	tickSize  = 10.0
	padding   = 16
	tickLen   = 5
)

// canvas is a PNG drawing surface with helpers for the primitives every
// chart shares: rectangles, lines, text, and axes.
type canvas struct {
	r             gochart.Renderer
	width, height int
	plot          gochart.Box
}

func newCanvas(width, height int) (*canvas, error) {
	r, err := gochart.PNG(width, height)
	if err != nil {
		return nil, err
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)
	c := &canvas{r: r, width: width, height: height}
	c.fillRect(0, 0, width, height, drawing.ColorWhite)
	return c, nil
}

// setPlot fixes the plot area given the margins around it.
func (c *canvas) setPlot(top, left, right, bottom int) {
	c.plot = gochart.Box{
		Top:    top,
		Left:   left,
		Right:  c.width - right,
		Bottom: c.height - bottom,
		IsSet:  true,
	}
}

func (c *canvas) png() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.r.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *canvas) fillRect(x0, y0, x1, y1 int, fill drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.Fill()
}

func (c *canvas) outlineRect(x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, stroke drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) polyline(xs, ys []int, stroke drawing.Color, width float64) {
	if len(xs) < 2 {
		return
	}
	c.r.ResetStyle()
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(xs[0], ys[0])
	for i := 1; i < len(xs); i++ {
		c.r.LineTo(xs[i], ys[i])
	}
	c.r.Stroke()
}

func (c *canvas) circle(x, y int, radius float64, fill, stroke drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.Circle(radius, x, y)
	c.r.FillStroke()
}

// measure returns the width and height of text at the given size.
func (c *canvas) measure(text string, size float64) (int, int) {
	c.r.ResetStyle()
	c.r.SetFontSize(size)
	b := c.r.MeasureText(text)
	return b.Width(), b.Height()
}

// text draws text with its baseline-left corner at (x, y).
func (c *canvas) text(s string, x, y int, size float64, col drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFontSize(size)
	c.r.SetFontColor(col)
	c.r.Text(s, x, y)
}

// textCentered draws text centred horizontally on x and vertically on y.
func (c *canvas) textCentered(s string, x, y int, size float64, col drawing.Color) {
	w, h := c.measure(s, size)
	c.text(s, x-w/2, y+h/2, size, col)
}

// textRight draws text ending at x, vertically centred on y.
func (c *canvas) textRight(s string, x, y int, size float64, col drawing.Color) {
	w, h := c.measure(s, size)
	c.text(s, x-w, y+h/2, size, col)
}

// textUp draws text reading bottom to top, starting at (x, y).
func (c *canvas) textUp(s string, x, y int, size float64, col drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFontSize(size)
	c.r.SetFontColor(col)
	c.r.SetTextRotation(gochart.DegreesToRadians(270))
	c.r.Text(s, x, y)
	c.r.ClearTextRotation()
}

func (c *canvas) title(s string) {
	c.textCentered(s, c.width/2, padding+int(titleSize)/2, titleSize, colorText)
}

// xLabel centres an axis name under the plot area.
func (c *canvas) xLabel(s string) {
	if s == "" {
		return
	}
	c.textCentered(s, (c.plot.Left+c.plot.Right)/2, c.height-padding, labelSize, colorText)
}

// yLabel centres a rotated axis name left of the plot area.
func (c *canvas) yLabel(s string) {
	if s == "" {
		return
	}
	w, h := c.measure(s, labelSize)
	c.textUp(s, padding+h, (c.plot.Top+c.plot.Bottom)/2+w/2, labelSize, colorText)
}

func (c *canvas) frame() {
	c.line(c.plot.Left, c.plot.Bottom, c.plot.Right, c.plot.Bottom, colorAxis, 1)
	c.line(c.plot.Left, c.plot.Top, c.plot.Left, c.plot.Bottom, colorAxis, 1)
}

// scale maps data values onto a pixel span.
type scale struct {
	lo, hi   float64
	pxLo     int
	pxHi     int
	ticks    []float64
	decimals int
}

func newScale(lo, hi float64, pxLo, pxHi, nTicks int) scale {
	ticks, decimals := niceTicks(lo, hi, nTicks)
	s := scale{lo: lo, hi: hi, pxLo: pxLo, pxHi: pxHi, ticks: ticks, decimals: decimals}
	if len(ticks) > 0 {
		s.lo = math.Min(lo, ticks[0])
		s.hi = math.Max(hi, ticks[len(ticks)-1])
	}
	if s.hi == s.lo {
		s.hi = s.lo + 1
	}
	return s
}

func (s scale) px(v float64) int {
	t := (v - s.lo) / (s.hi - s.lo)
	return s.pxLo + int(math.Round(t*float64(s.pxHi-s.pxLo)))
}

func (s scale) label(v float64) string {
	return strconv.FormatFloat(v, 'f', s.decimals, 64)
}

// yAxis draws horizontal grid lines and tick labels for a vertical scale.
func (c *canvas) yAxis(s scale) {
	for _, v := range s.ticks {
		y := s.px(v)
		c.line(c.plot.Left, y, c.plot.Right, y, colorGrid, 1)
		c.line(c.plot.Left-tickLen, y, c.plot.Left, y, colorAxis, 1)
		c.textRight(s.label(v), c.plot.Left-tickLen-3, y, tickSize, colorText)
	}
}

// xAxis draws vertical grid lines and tick labels for a horizontal scale.
func (c *canvas) xAxis(s scale) {
	for _, v := range s.ticks {
		x := s.px(v)
		c.line(x, c.plot.Top, x, c.plot.Bottom, colorGrid, 1)
		c.line(x, c.plot.Bottom, x, c.plot.Bottom+tickLen, colorAxis, 1)
		c.textCentered(s.label(v), x, c.plot.Bottom+tickLen+int(tickSize), tickSize, colorText)
	}
}

// tickLabelWidth is the widest tick label of s.
func (c *canvas) tickLabelWidth(s scale) int {
	widest := 0
	for _, v := range s.ticks {
		w, _ := c.measure(s.label(v), tickSize)
		widest = max(widest, w)
	}
	return widest
}

// niceTicks returns about n round tick values covering [lo, hi] and the
// number of decimals needed to print them.
func niceTicks(lo, hi float64, n int) ([]float64, int) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, 0
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		hi = lo + 1
	}
	if n < 2 {
		n = 2
	}
	step := niceNumber((hi-lo)/float64(n-1))
	start := math.Floor(lo/step) * step
	end := math.Ceil(hi/step) * step

	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}

	var ticks []float64
	for v := start; v <= end+step/2; v += step {
		// round away accumulated float error
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks, decimals
}

// niceNumber rounds x to 1, 2, 5, or 10 times a power of ten.
func niceNumber(x float64) float64 {
	exp := math.Floor(math.Log10(x))
	f := x / math.Pow(10, exp)
	var nf float64
	switch {
	case f < 1.5:
		nf = 1
	case f < 3:
		nf = 2
	case f < 7:
		nf = 5
	default:
		nf = 10
	}
	return nf * math.Pow(10, exp)
}
