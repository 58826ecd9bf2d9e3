package agro

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/cache"
	"github.com/agrihub/farm-backend/internal/events"
	"github.com/agrihub/farm-backend/internal/weather"
)

// DefaultTTL is how long a generated suggestion stays valid. Suggestions are
// cached longer than weather because model calls are slow and expensive.
const DefaultTTL = time.Hour

// Advisor abstracts the AI model that turns weather into recommendations.
type Advisor interface {
	Suggest(ctx context.Context, snap weather.Snapshot) (Suggestion, error)
}

// Service generates and caches agricultural suggestions. Unlike the weather
// service there is no synthetic fallback: a fabricated recommendation is
// worse than none, so advisor failures surface as an error plus an ai_error
// event.
type Service struct {
	cache   *cache.Expiring[Suggestion]
	flights cache.FlightGroup[Suggestion]
	bus     *events.Bus
	advisor Advisor
	log     *logrus.Entry
}

// Option tweaks a Service at construction.
type Option func(*Service)

// WithTTL overrides the suggestion TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache = cache.New[Suggestion](ttl) }
}

// NewService creates an agro Service backed by advisor.
func NewService(advisor Advisor, opts ...Option) (*Service, error) {
	if advisor == nil {
		return nil, fmt.Errorf("agro: advisor is required")
	}

	s := &Service{
		cache:   cache.New[Suggestion](DefaultTTL),
		bus:     events.NewBus("agro"),
		advisor: advisor,
		log:     logrus.WithField("service", "agro"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Analyze produces suggestions for the given weather snapshot, serving from
// cache within the TTL window. On advisor failure it returns a nil suggestion
// and the error; callers treat that as "no suggestion available".
func (s *Service) Analyze(ctx context.Context, snap weather.Snapshot) (*Suggestion, error) {
	if snap.Location == "" {
		return nil, fmt.Errorf("agro: weather snapshot has no location")
	}

	key := Key(snap.Location)

	if cached, ok := s.cache.Get(key); ok {
		s.log.WithField("key", key).Debug("cache hit")
		return &cached, nil
	}

	sug, err := s.flights.Do(key, func() (Suggestion, error) {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}

		sug, err := s.advisor.Suggest(ctx, snap)
		if err != nil {
			s.log.WithField("location", snap.Location).WithError(err).Error("ai analysis failed")
			s.bus.Notify(events.AIError, events.ErrorPayload{
				Location: snap.Location,
				Err:      err.Error(),
			})
			return Suggestion{}, err
		}

		s.cache.Put(key, sug)

		s.bus.Notify(events.SuggestionGenerated, events.SuggestionPayload{
			Location:        sug.Location,
			SuggestionCount: len(sug.Suggestions),
			Priority:        string(sug.Priority),
		})

		if sug.Priority.Alertable() {
			s.bus.Notify(events.HighPriorityAlert, events.SuggestionPayload{
				Location:        sug.Location,
				SuggestionCount: len(sug.Suggestions),
				Priority:        string(sug.Priority),
				Suggestions:     sug.Suggestions,
			})
		}

		return sug, nil
	})
	if err != nil {
		return nil, err
	}
	return &sug, nil
}

// AnalyzeMany generates suggestions for several snapshots sequentially,
// skipping failures. Model calls are not fanned out: the upstream rate limit
// is tighter than any latency win.
func (s *Service) AnalyzeMany(ctx context.Context, snaps []weather.Snapshot) []Suggestion {
	out := make([]Suggestion, 0, len(snaps))
	for _, snap := range snaps {
		sug, err := s.Analyze(ctx, snap)
		if err != nil {
			continue
		}
		out = append(out, *sug)
	}
	s.log.WithField("count", len(out)).Info("batch analysis complete")
	return out
}

// CacheInfo exposes cache state for the operational endpoint.
func (s *Service) CacheInfo() cache.Info {
	return s.cache.Info()
}

// ClearCache drops every cached suggestion.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.bus.Notify(events.CacheCleared, events.CacheClearedPayload{Service: "agro"})
	s.log.Info("agro cache cleared")
}

// Attach subscribes an observer to this service's events.
func (s *Service) Attach(o events.Observer) { s.bus.Attach(o) }

// Detach removes a subscribed observer.
func (s *Service) Detach(o events.Observer) { s.bus.Detach(o) }
