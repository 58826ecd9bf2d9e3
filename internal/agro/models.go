package agro

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrihub/farm-backend/internal/weather"
)

// Priority classifies how urgently a suggestion should be acted on.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority normalizes a priority string, defaulting to medium for
// anything unrecognized so a sloppy model response never breaks the pipeline.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	case PriorityUrgent:
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

// Alertable reports whether observers should treat the priority as an alert.
func (p Priority) Alertable() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// Suggestion is one AI-derived bundle of farming recommendations for a
// location, tied to the weather context it was derived from.
type Suggestion struct {
	ID          string           `json:"id"`
	Location    string           `json:"location"`
	Suggestions []string         `json:"suggestions"`
	Priority    Priority         `json:"priority"`
	Confidence  float64          `json:"confidence"`
	Reasoning   string           `json:"reasoning"`
	Weather     weather.Snapshot `json:"weather_context"`
	Timestamp   time.Time        `json:"timestamp"`
}

func newSuggestion(location string, snap weather.Snapshot) Suggestion {
	return Suggestion{
		ID:        uuid.NewString(),
		Location:  location,
		Priority:  PriorityMedium,
		Weather:   snap,
		Timestamp: time.Now().UTC(),
	}
}

// Key derives the agro cache key from a location name: lowercased with
// spaces collapsed to underscores, so "Vila Real" and "vila real" share one
// slot.
func Key(location string) string {
	normalized := strings.ToLower(strings.TrimSpace(location))
	normalized = strings.Join(strings.Fields(normalized), "_")
	return fmt.Sprintf("agro_%s", normalized)
}
