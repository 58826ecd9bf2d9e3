package realtime

import (
	"github.com/agrihub/farm-backend/internal/events"
)

// PushObserver forwards service events to the websocket hub. Events carrying
// an entity identity go only to subscribed clients; the rest are broadcast.
// It tolerates an empty hub, so it can stay attached with nobody listening.
type PushObserver struct {
	hub *Hub
}

func NewPushObserver(hub *Hub) *PushObserver {
	return &PushObserver{hub: hub}
}

func (o *PushObserver) Name() string { return "realtime-push" }

func (o *PushObserver) OnEvent(e events.Event) error {
	msg := Message{
		Kind:      "event",
		EventType: e.Type,
		Source:    e.Source,
		Timestamp: e.Timestamp,
		Data:      e.Payload,
	}

	if entity := e.EntityID(); entity != "" {
		o.hub.BroadcastScoped(entity, msg)
		return nil
	}
	o.hub.Broadcast(msg)
	return nil
}
