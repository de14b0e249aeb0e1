//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
)

// Live checks against the Mapbox API. They need MAPBOX_TOKEN:
//
//	MAPBOX_TOKEN=... go test -tags=mapbox ./internal/adapter/mapbox/ -count=1

var (
	downtownLA = domain.LatLng{Lat: 34.0522, Lng: -118.2437}
	dallas     = domain.LatLng{Lat: 32.7767, Lng: -96.7970}
	midPacific = domain.LatLng{Lat: 0, Lng: -140}
)

func liveGeocoder(t *testing.T) (*CachedGeocoder, *observability.Metrics) {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Skip("MAPBOX_TOKEN not set")
	}
	metrics := observability.NewMetricsForTesting()
	client := NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	return NewCachedGeocoder(client, 16, metrics), metrics
}

func TestSmoke_LabelHotspots(t *testing.T) {
	geo, metrics := liveGeocoder(t)
	hotspots := []domain.Hotspot{
		{Cell: "68:-237", Center: downtownLA, Count: 120},
		{Cell: "65:-194", Center: dallas, Count: 80},
		{Cell: "0:-280", Center: midPacific, Count: 1},
	}

	labelled := domain.LabelHotspots(context.Background(), hotspots, geo, slog.Default())

	require.Len(t, labelled, 3)
	assert.Equal(t, "reverse", labelled[0].GeoSource)
	assert.Contains(t, labelled[0].FormattedAddress, "Los Angeles")
	assert.Contains(t, labelled[1].FormattedAddress, "Dallas")
	assert.Positive(t, labelled[1].GeoConfidence)
	assert.Equal(t, "original", labelled[2].GeoSource, "open ocean has no place")
	assert.Equal(t, "0.000, -140.000", labelled[2].Label)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")), 0)
}

func TestSmoke_RepeatedLookupIsCached(t *testing.T) {
	geo, metrics := liveGeocoder(t)

	first, err := geo.ReverseGeocode(context.Background(), dallas)
	require.NoError(t, err)
	second, err := geo.ReverseGeocode(context.Background(), dallas)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
}
