// Package render draws report charts as PNG files with go-chart: its chart
// types where they fit, its rasterizer directly for the rest.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

// Renderer writes charts into a directory at a fixed pixel size.
type Renderer struct {
	dir     string
	width   int
	height  int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRenderer creates a Renderer writing into dir.
func NewRenderer(dir string, width, height int, logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{
		dir:     dir,
		width:   width,
		height:  height,
		logger:  logger,
		metrics: metrics,
	}
}

// RenderBars draws a vertical, horizontal, or stacked count plot. A plain
// vertical plot is a go-chart BarChart; stacked and horizontal plots are
// drawn on the canvas, since go-chart's StackedBarChart scales every bar to
// 100%.
func (r *Renderer) RenderBars(ctx context.Context, file string, spec domain.BarChart) (string, error) {
	return r.render(ctx, file, func() ([]byte, error) {
		if err := checkBars(spec); err != nil {
			return nil, err
		}
		if len(spec.Categories) == 0 || spec.Horizontal || len(spec.Stacks) > 0 {
			return r.onCanvas(func(c *canvas) error { return drawBars(c, spec) })
		}
		return encode(barPlot(spec, r.width, r.height))
	})
}

// RenderHistogram draws binned counts with a density overlay.
func (r *Renderer) RenderHistogram(ctx context.Context, file string, spec domain.HistogramChart) (string, error) {
	return r.render(ctx, file, func() ([]byte, error) {
		h := spec.Histogram
		if len(h.Counts) > 0 && len(h.Edges) != len(h.Counts)+1 {
			return nil, fmt.Errorf("%d bins but %d edges", len(h.Counts), len(h.Edges))
		}
		if len(h.Counts) == 0 {
			return r.onCanvas(func(c *canvas) error {
				drawEmpty(c, spec.Title, spec.XLabel, spec.YLabel)
				return nil
			})
		}
		plot, err := histogramPlot(spec, r.width, r.height)
		if err != nil {
			return nil, err
		}
		return encode(plot)
	})
}

// RenderBoxPlot draws one box and whisker per group.
func (r *Renderer) RenderBoxPlot(ctx context.Context, file string, spec domain.BoxPlotChart) (string, error) {
	return r.render(ctx, file, func() ([]byte, error) {
		return r.onCanvas(func(c *canvas) error { return drawBoxPlot(c, spec) })
	})
}

// RenderMatrix draws an annotated correlation heatmap.
func (r *Renderer) RenderMatrix(ctx context.Context, file string, spec domain.MatrixChart) (string, error) {
	return r.render(ctx, file, func() ([]byte, error) {
		return r.onCanvas(func(c *canvas) error { return drawMatrix(c, spec) })
	})
}

// render produces the PNG in memory and only then touches the file system,
// so a drawing failure never leaves a partial artifact.
func (r *Renderer) render(ctx context.Context, file string, draw func() ([]byte, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := draw()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrRender, file, err)
	}

	path := filepath.Join(r.dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}
	r.metrics.ArtifactsWritten.WithLabelValues("png").Inc()
	r.logger.Debug("chart written", "path", path, "bytes", len(data))
	return path, nil
}

func (r *Renderer) onCanvas(draw func(*canvas) error) ([]byte, error) {
	c, err := newCanvas(r.width, r.height)
	if err != nil {
		return nil, fmt.Errorf("canvas: %w", err)
	}
	if err := draw(c); err != nil {
		return nil, err
	}
	return c.png()
}

// chart is a go-chart chart type that renders itself.
type chart interface {
	Render(rp gochart.RendererProvider, w io.Writer) error
}

func encode(ch chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
