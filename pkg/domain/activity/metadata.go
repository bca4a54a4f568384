package activity

import (
	"fmt"
	"time"
)

// Metadata describes one activity independently of its point samples. The
// parsers fill what the file carries; totals fall back to values derived
// from the records when the file has no session summary.
type Metadata struct {
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	StartTime time.Time `json:"start_time"`

	// Source format, "fit" or "gpx".
	Source string `json:"source"`

	// Sport and SubSport keep the device's own vocabulary for debugging
	// type-resolution issues.
	Sport    string `json:"sport,omitempty"`
	SubSport string `json:"sub_sport,omitempty"`

	TotalDistanceM float64 `json:"total_distance_m"`
	TotalElapsedS  float64 `json:"total_elapsed_s"`
}

// DefaultName builds a name like "Morning Run" when the file carries none.
func DefaultName(t Type, start time.Time) string {
	hour := start.Hour()
	var timeOfDay string
	switch {
	case hour < 12:
		timeOfDay = "Morning"
	case hour < 17:
		timeOfDay = "Afternoon"
	case hour < 21:
		timeOfDay = "Evening"
	default:
		timeOfDay = "Night"
	}
	return fmt.Sprintf("%s %s", timeOfDay, t.Display())
}
