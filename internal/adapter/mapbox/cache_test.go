package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/accident-eda/internal/domain"
	"github.com/couchcryptid/accident-eda/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.Place
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _ domain.LatLng) (domain.Place, error) {
	m.calls++
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.Place{Name: "Houston", Address: "Houston, Texas"},
	}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 29.7604, Lng: -95.3698})
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 29.7604, Lng: -95.3698})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_NearbyCoordinatesShareKey(t *testing.T) {
	inner := &countingGeocoder{result: domain.Place{Address: "Houston, Texas"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 29.76041, Lng: -95.36981})
	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 29.76039, Lng: -95.36979})

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.Place{Address: "Somewhere"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 29.76, Lng: -95.37})
	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 32.78, Lng: -96.80})

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyAndErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 0, Lng: 0})
	_, _ = cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 0, Lng: 0})
	assert.Equal(t, 2, inner.calls, "empty results are retried")

	inner.err = errors.New("boom")
	_, err := cached.ReverseGeocode(context.Background(), domain.LatLng{Lat: 1, Lng: 1})
	require.Error(t, err)
	assert.Equal(t, 0, cached.cache.len())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", domain.Place{Name: "A"})
	c.put("b", domain.Place{Name: "B"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.Name)

	_, ok = c.get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Place{Name: "A"})
	c.put("b", domain.Place{Name: "B"})
	c.put("c", domain.Place{Name: "C"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.Name)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Place{Name: "A"})
	c.put("b", domain.Place{Name: "B"})
	c.get("a")
	c.put("c", domain.Place{Name: "C"})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.Place{Name: "A1"})
	c.put("a", domain.Place{Name: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.Name)
	assert.Equal(t, 1, c.len())
}
