package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Observer receives events published on a Bus. Implementations should be
// pointer types; the bus deduplicates attached observers by identity.
type Observer interface {
	// Name identifies the observer in logs.
	Name() string
	// OnEvent handles a single event. It runs synchronously on the
	// publisher's goroutine, so it should return quickly.
	OnEvent(e Event) error
}

// Bus is a synchronous publish/subscribe primitive. Services compose a Bus
// rather than embedding a subject base type, which keeps the dependency
// explicit and testable on its own.
//
// Notify delivers to observers in the order they were attached, on the
// caller's goroutine. An observer that returns an error or panics is logged
// and skipped; it never prevents delivery to later observers and never
// surfaces to the publisher.
type Bus struct {
	mu        sync.RWMutex
	source    string
	observers []Observer
	log       *logrus.Entry
}

// NewBus creates a Bus whose events carry source as their origin.
func NewBus(source string) *Bus {
	return &Bus{
		source: source,
		log:    logrus.WithField("bus", source),
	}
}

// Attach registers an observer. Attaching the same instance twice is a no-op,
// so a notify still delivers exactly once.
func (b *Bus) Attach(o Observer) {
	if o == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
	b.log.WithField("observer", o.Name()).Info("observer attached")
}

// Detach removes an observer. Detaching one that is not attached is a no-op.
func (b *Bus) Detach(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			b.log.WithField("observer", o.Name()).Info("observer detached")
			return
		}
	}
}

// Notify publishes an event to every attached observer and blocks until each
// has been invoked or failed.
func (b *Bus) Notify(eventType string, payload any) {
	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	e := Event{
		Type:      eventType,
		Source:    b.source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, o := range observers {
		b.deliver(o, e)
	}
}

// ObserverCount reports how many observers are attached.
func (b *Bus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

func (b *Bus) deliver(o Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"observer": o.Name(),
				"event":    e.Type,
				"panic":    r,
			}).Error("observer panicked during delivery")
		}
	}()

	if err := o.OnEvent(e); err != nil {
		b.log.WithFields(logrus.Fields{
			"observer": o.Name(),
			"event":    e.Type,
		}).WithError(err).Error("observer failed to handle event")
	}
}
