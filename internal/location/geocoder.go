package location

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"
)

// GoogleGeocoder implements Geocoder on top of the Google Maps geocoding API.
type GoogleGeocoder struct{}

// NewGoogleGeocoder configures the geocoder with the given API key.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("location: geocoder api key is required")
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}, nil
}

// UnconfiguredGeocoder stands in when no API key is present. Every lookup
// fails, which pushes the service onto its approximate fallback path.
type UnconfiguredGeocoder struct{}

func (UnconfiguredGeocoder) Geocode(context.Context, string) (Place, error) {
	return Place{}, fmt.Errorf("location: geocoder not configured")
}

func (UnconfiguredGeocoder) ReverseGeocode(context.Context, float64, float64) (Place, error) {
	return Place{}, fmt.Errorf("location: geocoder not configured")
}

// Geocode resolves a free-text address. The underlying library does not take
// a context; callers rely on the service-level fallback if this stalls.
func (g *GoogleGeocoder) Geocode(_ context.Context, query string) (Place, error) {
	loc, err := geocoder.Geocoding(geocoder.Address{Street: query})
	if err != nil {
		return Place{}, fmt.Errorf("geocoding %q: %w", query, err)
	}

	return Place{
		Name:      query,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}, nil
}

// ReverseGeocode resolves coordinates to the closest known address.
func (g *GoogleGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (Place, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return Place{}, fmt.Errorf("reverse geocoding %.4f,%.4f: %w", lat, lon, err)
	}
	if len(addresses) == 0 {
		return Place{}, fmt.Errorf("reverse geocoding %.4f,%.4f: no results", lat, lon)
	}

	addr := addresses[0]
	return Place{
		Name:      addr.City,
		Address:   addr.FormatAddress(),
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
