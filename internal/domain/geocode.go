package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// CoordinateLabel formats a coordinate pair as a short display label.
func CoordinateLabel(p LatLng) string {
	return fmt.Sprintf("%.3f, %.3f", p.Lat, p.Lng)
}

// LabelHotspot names a hotspot after the place at its centre. Without a
// geocoder, or when geocoding fails, the coordinate label is kept and
// GeoSource records why (graceful degradation).
func LabelHotspot(ctx context.Context, h Hotspot, geocoder Geocoder, logger *slog.Logger) Hotspot {
	if h.Label == "" {
		h.Label = CoordinateLabel(h.Center)
	}
	if geocoder == nil {
		return h
	}

	result, err := geocoder.ReverseGeocode(ctx, h.Center)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"cell", h.Cell,
			"lat", h.Center.Lat,
			"lng", h.Center.Lng,
			"error", err,
		)
		h.GeoSource = "failed"
		return h
	}
	if !result.Found() {
		h.GeoSource = "original"
		return h
	}

	h.FormattedAddress = result.Address
	h.GeoConfidence = result.Relevance
	h.GeoSource = "reverse"
	if result.Name != "" {
		h.Label = result.Name
	}
	return h
}

// LabelHotspots applies LabelHotspot to every hotspot, stopping early only
// when ctx is cancelled.
func LabelHotspots(ctx context.Context, hotspots []Hotspot, geocoder Geocoder, logger *slog.Logger) []Hotspot {
	out := make([]Hotspot, len(hotspots))
	for i, h := range hotspots {
		if ctx.Err() != nil {
			h.Label = CoordinateLabel(h.Center)
			out[i] = h
			continue
		}
		out[i] = LabelHotspot(ctx, h, geocoder, logger)
	}
	return out
}
