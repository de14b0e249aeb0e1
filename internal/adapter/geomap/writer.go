// Package geomap writes the accident density map as a self-contained
// Leaflet page with a heat layer.
package geomap

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

//go:embed heatmap.html.tmpl
var pageSource string

var page = template.Must(template.New("heatmap").Parse(pageSource))

type hotspotView struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

type pageData struct {
	Title    string
	Center   domain.LatLng
	Zoom     int
	Points   [][2]float64
	Hotspots []hotspotView
	Caption  string
}

// Writer renders heat map pages.
type Writer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{logger: logger, metrics: metrics}
}

// WriteHeatmap renders m to path, replacing any existing file. Template
// failures wrap domain.ErrRender; file system failures wrap domain.ErrWrite.
func (w *Writer) WriteHeatmap(ctx context.Context, m domain.HeatMap, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, newPageData(m)); err != nil {
		return fmt.Errorf("%w: heatmap template: %w", domain.ErrRender, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}

	w.metrics.ArtifactsWritten.WithLabelValues("html").Inc()
	w.logger.Info("heatmap written",
		"path", path,
		"points", len(m.Points),
		"hotspots", len(m.Hotspots),
		"bytes", buf.Len(),
	)
	return nil
}

func newPageData(m domain.HeatMap) pageData {
	points := make([][2]float64, len(m.Points))
	for i, p := range m.Points {
		points[i] = [2]float64{p.Lat, p.Lng}
	}
	hotspots := make([]hotspotView, len(m.Hotspots))
	for i, h := range m.Hotspots {
		label := h.Label
		if label == "" {
			label = domain.CoordinateLabel(h.Center)
		}
		hotspots[i] = hotspotView{Lat: h.Center.Lat, Lng: h.Center.Lng, Label: label, Count: h.Count}
	}

	caption := fmt.Sprintf("%d accident locations", len(m.Points))
	if m.GeneratedAt != "" {
		caption += ", generated " + m.GeneratedAt
	}
	return pageData{
		Title:    m.Title,
		Center:   m.Center,
		Zoom:     m.Zoom,
		Points:   points,
		Hotspots: hotspots,
		Caption:  caption,
	}
}
