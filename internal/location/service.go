package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/cache"
	"github.com/agrihub/farm-backend/internal/events"
)

const (
	// DefaultTTL covers geocode and reverse lookups.
	DefaultTTL = time.Hour
	// DivisionsTTL covers the administrative hierarchy, which changes on the
	// scale of years, not hours.
	DivisionsTTL = 24 * time.Hour
)

// Geocoder abstracts the external geocoding provider.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}

// DivisionSource abstracts the administrative-division lookup.
type DivisionSource interface {
	Divisions(ctx context.Context) (Hierarchy, error)
}

// Service caches geocoding results and the administrative hierarchy. Upstream
// failures degrade to locally synthesized substitutes so callers always get a
// usable place.
type Service struct {
	places    *cache.Expiring[Place]
	divisions *cache.Expiring[Hierarchy]
	flights   cache.FlightGroup[Place]
	bus       *events.Bus
	geocoder  Geocoder
	source    DivisionSource
	log       *logrus.Entry
}

// Option tweaks a Service at construction.
type Option func(*Service)

// WithTTL overrides the geocode TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.places = cache.New[Place](ttl) }
}

// WithDivisionsTTL overrides the hierarchy TTL.
func WithDivisionsTTL(ttl time.Duration) Option {
	return func(s *Service) { s.divisions = cache.New[Hierarchy](ttl) }
}

// NewService creates a location Service.
func NewService(geocoder Geocoder, source DivisionSource, opts ...Option) *Service {
	s := &Service{
		places:    cache.New[Place](DefaultTTL),
		divisions: cache.New[Hierarchy](DivisionsTTL),
		bus:       events.NewBus("location"),
		geocoder:  geocoder,
		source:    source,
		log:       logrus.WithField("service", "location"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Geocode resolves an address to a place, serving from cache within the TTL.
// When the geocoder fails, a best-effort substitute carrying the query as its
// name is returned instead of an error.
func (s *Service) Geocode(ctx context.Context, query string) (Place, error) {
	if strings.TrimSpace(query) == "" {
		return Place{}, ErrEmptyQuery
	}

	key := geocodeKey(query)

	if place, ok := s.places.Get(key); ok {
		return place, nil
	}

	return s.flights.Do(key, func() (Place, error) {
		if place, ok := s.places.Get(key); ok {
			return place, nil
		}

		place, err := s.geocoder.Geocode(ctx, query)
		fallback := err != nil
		if fallback {
			s.log.WithField("query", query).WithError(err).Warn("geocode failed; returning approximate place")
			place = Place{Name: query, Approximate: true}
		}

		s.places.Put(key, place)
		s.bus.Notify(events.LocationResolved, events.LocationResolvedPayload{
			Query:    query,
			Key:      key,
			Fallback: fallback,
		})
		return place, nil
	})
}

// ReverseGeocode resolves coordinates to a place, with the same caching and
// degradation behaviour as Geocode.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error) {
	if !validCoordinates(lat, lon) {
		return Place{}, fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, lat, lon)
	}

	key := reverseKey(lat, lon)

	if place, ok := s.places.Get(key); ok {
		return place, nil
	}

	return s.flights.Do(key, func() (Place, error) {
		if place, ok := s.places.Get(key); ok {
			return place, nil
		}

		place, err := s.geocoder.ReverseGeocode(ctx, lat, lon)
		fallback := err != nil
		if fallback {
			s.log.WithField("key", key).WithError(err).Warn("reverse geocode failed; returning approximate place")
			place = Place{
				Name:        fmt.Sprintf("Location at %.4f, %.4f", lat, lon),
				Latitude:    lat,
				Longitude:   lon,
				Approximate: true,
			}
		}

		s.places.Put(key, place)
		s.bus.Notify(events.LocationResolved, events.LocationResolvedPayload{
			Query:    key,
			Key:      key,
			Fallback: fallback,
		})
		return place, nil
	})
}

// Divisions returns the administrative hierarchy under its singleton cache
// key. On source failure a minimal embedded hierarchy is served so dependent
// dropdowns never come up empty.
func (s *Service) Divisions(ctx context.Context) (Hierarchy, error) {
	if h, ok := s.divisions.Get(divisionsKey); ok {
		return h, nil
	}

	h, err := s.source.Divisions(ctx)
	if err != nil {
		s.log.WithError(err).Warn("division lookup failed; serving embedded fallback")
		h = fallbackHierarchy()
	}

	s.divisions.Put(divisionsKey, h)
	s.bus.Notify(events.DivisionsRefreshed, events.CacheClearedPayload{Service: "location"})
	return h, nil
}

// CacheInfo exposes the place-cache state for the operational endpoint.
func (s *Service) CacheInfo() cache.Info {
	return s.places.Info()
}

// DivisionsCacheInfo exposes the hierarchy-cache state.
func (s *Service) DivisionsCacheInfo() cache.Info {
	return s.divisions.Info()
}

// ClearCache drops both caches.
func (s *Service) ClearCache() {
	s.places.Clear()
	s.divisions.Clear()
	s.bus.Notify(events.CacheCleared, events.CacheClearedPayload{Service: "location"})
	s.log.Info("location caches cleared")
}

// Attach subscribes an observer to this service's events.
func (s *Service) Attach(o events.Observer) { s.bus.Attach(o) }

// Detach removes a subscribed observer.
func (s *Service) Detach(o events.Observer) { s.bus.Detach(o) }
