package weather

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/cache"
	"github.com/agrihub/farm-backend/internal/events"
	"github.com/agrihub/farm-backend/internal/fanout"
)

// DefaultTTL is how long a fetched snapshot stays valid.
const DefaultTTL = 30 * time.Minute

// Fetcher abstracts the upstream weather provider.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Snapshot, error)
}

// Service is the read-through caching front for weather lookups. Misses go to
// the upstream fetcher; upstream failures degrade to a locally simulated
// snapshot so callers always receive a usable result. Every refresh is
// published on the service's event bus.
type Service struct {
	cache   *cache.Expiring[Snapshot]
	flights cache.FlightGroup[Snapshot]
	bus     *events.Bus
	fetcher Fetcher
	workers int
	timeout time.Duration
	log     *logrus.Entry
}

// Option tweaks a Service at construction.
type Option func(*Service)

// WithTTL overrides the snapshot TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache = cache.New[Snapshot](ttl) }
}

// WithWorkers bounds batch-fetch parallelism.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithBatchTimeout applies a deadline to whole batch runs.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a weather Service backed by fetcher.
func NewService(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		cache:   cache.New[Snapshot](DefaultTTL),
		bus:     events.NewBus("weather"),
		fetcher: fetcher,
		workers: fanout.DefaultWorkers,
		log:     logrus.WithField("service", "weather"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the weather snapshot for a location, serving from cache when a
// valid entry exists. On a miss the upstream fetch runs outside the cache
// lock; concurrent misses on the same key are coalesced into one fetch.
func (s *Service) Get(ctx context.Context, req Request) (Snapshot, error) {
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}

	key := Key(req.Lat, req.Lon)

	if snap, ok := s.cache.Get(key); ok {
		s.log.WithField("key", key).Debug("cache hit")
		return snap, nil
	}

	return s.flights.Do(key, func() (Snapshot, error) {
		// A racing caller may have populated the key while we waited for
		// the flight slot.
		if snap, ok := s.cache.Get(key); ok {
			return snap, nil
		}

		snap, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			// Graceful degradation: a simulated snapshot beats a hard
			// failure for transient upstream outages.
			s.log.WithField("location", req.Name).WithError(err).Warn("upstream fetch failed; using simulated data")
			s.bus.Notify(events.APIError, events.ErrorPayload{Location: req.Name, Err: err.Error()})
			snap = Simulate(req)
		}

		s.cache.Put(key, snap)
		s.bus.Notify(events.WeatherUpdated, events.WeatherUpdatedPayload{
			Location: req.Name,
			Key:      key,
			Fallback: snap.Simulated,
		})

		if cond := alertCondition(snap); cond != "" {
			s.bus.Notify(events.WeatherAlert, events.WeatherAlertPayload{
				Location:  req.Name,
				Key:       key,
				Condition: cond,
			})
		}
		return snap, nil
	})
}

// GetMany fetches snapshots for several locations through a bounded worker
// pool. Each lookup goes through Get, so cache hits short-circuit and every
// success lands in the shared cache. Invalid or failed requests are dropped
// from the result.
func (s *Service) GetMany(ctx context.Context, reqs []Request) []Snapshot {
	jobs := make([]fanout.Job[Request], len(reqs))
	for i, r := range reqs {
		jobs[i] = fanout.Job[Request]{ID: r.Name, Input: r}
	}

	return fanout.Run(ctx, fanout.Config{Workers: s.workers, Timeout: s.timeout}, jobs,
		func(ctx context.Context, req Request) (Snapshot, error) {
			return s.Get(ctx, req)
		})
}

// CacheInfo exposes cache state for the operational endpoint.
func (s *Service) CacheInfo() cache.Info {
	return s.cache.Info()
}

// ClearCache drops every cached snapshot.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.bus.Notify(events.CacheCleared, events.CacheClearedPayload{Service: "weather"})
	s.log.Info("weather cache cleared")
}

// Attach subscribes an observer to this service's events.
func (s *Service) Attach(o events.Observer) { s.bus.Attach(o) }

// Detach removes a subscribed observer.
func (s *Service) Detach(o events.Observer) { s.bus.Detach(o) }
