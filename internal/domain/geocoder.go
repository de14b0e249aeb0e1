package domain

import "context"

// Place is the named location a provider matched for a coordinate. The
// zero Place means no match.
type Place struct {
	Name      string  // short name, e.g. "Dayton"
	Address   string  // full formatted address
	Location  LatLng  // provider's reference point for the place
	Relevance float64 // 0.0–1.0 provider match score
}

// Found reports whether the provider matched a place.
func (p Place) Found() bool { return p.Address != "" }

// Geocoder resolves a coordinate to the place containing it.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, at LatLng) (Place, error)
}
