package location

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuery is returned when a geocode request has no address.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidCoordinates mirrors the weather-side validation for reverse
	// lookups.
	ErrInvalidCoordinates = errors.New("coordinates out of range")
)

// Place is a resolved geographic location.
type Place struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Approximate marks places synthesized locally because the geocoder was
	// unavailable.
	Approximate bool `json:"approximate,omitempty"`
}

// Parish is the smallest administrative unit.
type Parish struct {
	Name string `json:"name"`
}

// Municipality groups parishes.
type Municipality struct {
	Name     string   `json:"name"`
	Parishes []Parish `json:"parishes,omitempty"`
}

// District is the top administrative level.
type District struct {
	Name           string         `json:"name"`
	Municipalities []Municipality `json:"municipalities,omitempty"`
}

// Hierarchy is the full administrative-division tree.
type Hierarchy struct {
	Districts []District `json:"districts"`
}

// geocodeKey derives the cache key for a forward geocode query: lowercased
// and whitespace-collapsed so equivalent spellings share one slot.
func geocodeKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), "_")
	return fmt.Sprintf("geocode_%s", normalized)
}

// reverseKey derives the cache key for a reverse lookup; the same 4-decimal
// rounding the weather service uses keeps near-duplicates in one slot.
func reverseKey(lat, lon float64) string {
	return fmt.Sprintf("reverse_%.4f,%.4f", lat, lon)
}

// divisionsKey is the singleton key for the administrative hierarchy.
const divisionsKey = "divisions"

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
