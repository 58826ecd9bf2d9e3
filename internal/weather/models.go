package weather

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCoordinates is returned before any cache or upstream
	// interaction when a request carries out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	// ErrEmptyLocation is returned when a request has no location name.
	ErrEmptyLocation = errors.New("location name is empty")
)

// Request identifies one place to fetch weather for.
type Request struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"min=-90,max=90"`
	Lon  float64 `json:"lon" validate:"min=-180,max=180"`
}

// Validate rejects malformed requests before they touch the cache.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyLocation
	}
	if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, r.Lat, r.Lon)
	}
	return nil
}

// Key derives the cache key for a coordinate pair. Rounding to four decimals
// (~11m) coalesces near-duplicate requests into one cache slot.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// alertCondition names the hazardous condition a snapshot represents, or
// returns "" for routine weather. Thresholds target crop damage, not comfort.
func alertCondition(s Snapshot) string {
	switch {
	case s.Temperature >= 38:
		return "extreme heat"
	case s.Temperature <= 0:
		return "frost risk"
	case s.Humidity >= 95:
		return "saturated air"
	default:
		return ""
	}
}

// Snapshot is the weather view for one location at a point in time.
type Snapshot struct {
	Location    string    `json:"location"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"` // Celsius
	Humidity    float64   `json:"humidity"`    // percent
	Pressure    float64   `json:"pressure"`    // hPa
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"` // always UTC

	// Simulated marks snapshots generated locally because the upstream
	// provider was unavailable.
	Simulated bool `json:"simulated,omitempty"`
}
