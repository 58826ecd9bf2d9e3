// Package observers holds the event consumers wired to the domain services at
// startup: an alerting observer for high-priority events and a logging
// observer that keeps an event histogram. The realtime push observer lives in
// the realtime package next to its websocket hub.
package observers

import (
	"github.com/sirupsen/logrus"

	"github.com/agrihub/farm-backend/internal/events"
)

// Alert reacts only to high-priority and urgent events and forwards them to
// an external notification sink. With no sink configured it logs at warning
// level, which is the default deployment.
type Alert struct {
	// Notify, when set, delivers the alert externally (push service, pager).
	// It must not be changed after the observer is attached.
	Notify func(e events.Event)

	log *logrus.Entry
}

func NewAlert() *Alert {
	return &Alert{log: logrus.WithField("observer", "alert")}
}

func (a *Alert) Name() string { return "alert" }

func (a *Alert) OnEvent(e events.Event) error {
	switch e.Type {
	case events.HighPriorityAlert, events.WeatherAlert:
	default:
		return nil
	}

	fields := logrus.Fields{"event": e.Type}
	switch p := e.Payload.(type) {
	case events.SuggestionPayload:
		fields["location"] = p.Location
		fields["priority"] = p.Priority
	case events.WeatherAlertPayload:
		fields["location"] = p.Location
		fields["condition"] = p.Condition
	}
	a.log.WithFields(fields).Warn("high priority alert")

	if a.Notify != nil {
		a.Notify(e)
	}
	return nil
}
