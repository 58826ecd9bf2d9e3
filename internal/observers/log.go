package observers

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/events"
)

// Log records every event it sees and keeps a per-type histogram for the
// operational stats endpoint.
type Log struct {
	mu     sync.Mutex
	counts map[string]int
	log    *logrus.Entry
}

// Stats is a point-in-time snapshot of the histogram.
type Stats struct {
	TotalEvents    int            `json:"total_events"`
	EventBreakdown map[string]int `json:"event_breakdown"`
}

func NewLog() *Log {
	return &Log{
		counts: make(map[string]int),
		log:    logrus.WithField("observer", "log"),
	}
}

func (l *Log) Name() string { return "log" }

func (l *Log) OnEvent(e events.Event) error {
	l.mu.Lock()
	l.counts[e.Type]++
	n := l.counts[e.Type]
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"event":  e.Type,
		"source": e.Source,
		"count":  n,
	}).Info("event observed")
	return nil
}

// Stats returns a copy of the histogram.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	breakdown := make(map[string]int, len(l.counts))
	total := 0
	for k, v := range l.counts {
		breakdown[k] = v
		total += v
	}
	return Stats{TotalEvents: total, EventBreakdown: breakdown}
}
