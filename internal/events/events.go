package events

import "time"

// Event types emitted by the weather service.
const (
	WeatherUpdated = "weather_updated"
	WeatherAlert   = "weather_alert"
	CacheCleared   = "cache_cleared"
	APIError       = "api_error"
)

// Event types emitted by the agro service.
const (
	SuggestionGenerated = "suggestion_generated"
	HighPriorityAlert   = "high_priority_alert"
	AIError             = "ai_error"
)

// Event types emitted by the location service.
const (
	LocationResolved   = "location_resolved"
	DivisionsRefreshed = "divisions_refreshed"
)

// Event is what the bus delivers to observers. Payload holds one of the typed
// payload structs below; observers type-switch on it instead of probing maps.
type Event struct {
	Type      string    `json:"event_type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"data"`
}

// WeatherUpdatedPayload accompanies WeatherUpdated.
type WeatherUpdatedPayload struct {
	Location string `json:"location"`
	Key      string `json:"key"`
	Fallback bool   `json:"fallback"`
}

// WeatherAlertPayload accompanies WeatherAlert.
type WeatherAlertPayload struct {
	Location  string `json:"location"`
	Key       string `json:"key"`
	Condition string `json:"condition"`
}

// SuggestionPayload accompanies SuggestionGenerated and HighPriorityAlert.
type SuggestionPayload struct {
	Location        string   `json:"location"`
	SuggestionCount int      `json:"suggestion_count"`
	Priority        string   `json:"priority"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// ErrorPayload accompanies AIError and APIError.
type ErrorPayload struct {
	Location string `json:"location"`
	Err      string `json:"error"`
}

// CacheClearedPayload accompanies CacheCleared.
type CacheClearedPayload struct {
	Service string `json:"service"`
}

// LocationResolvedPayload accompanies LocationResolved.
type LocationResolvedPayload struct {
	Query    string `json:"query"`
	Key      string `json:"key"`
	Fallback bool   `json:"fallback"`
}

// EntityID returns the entity an event is scoped to, if any. The realtime
// observer uses it to deliver entity-scoped events only to subscribed clients.
func (e Event) EntityID() string {
	switch p := e.Payload.(type) {
	case WeatherUpdatedPayload:
		return p.Key
	case WeatherAlertPayload:
		return p.Key
	case SuggestionPayload:
		return p.Location
	case LocationResolvedPayload:
		return p.Key
	default:
		return ""
	}
}
