package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/weather"
)

// Scheduler periodically refreshes weather data for configured locations so
// the cache stays warm and observers (realtime clients included) see updates
// without a user request triggering them.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	locations []weather.Request
	interval  time.Duration
	log       *logrus.Entry
}

// New creates a Scheduler refreshing locations every interval.
func New(locations []weather.Request, interval time.Duration, service *weather.Service) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		locations: locations,
		interval:  interval,
		log:       logrus.WithField("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.log.Info("no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.log.WithField("locations", len(s.locations)).Info("running weather refresh job")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		snaps := s.service.GetMany(ctx, s.locations)
		s.log.WithField("refreshed", len(snaps)).Info("weather refresh job complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
