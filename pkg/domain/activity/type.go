// Package activity holds the metadata model shared by the parsers, the
// stores and the API: what an activity is called, when it started, what
// kind of effort it was.
package activity

import "strings"

// Type classifies an activity. The analysis engine is tuned for running,
// but files from other sports still parse and store.
type Type string

const (
	TypeUnknown    Type = ""
	TypeRun        Type = "run"
	TypeTrailRun   Type = "trail_run"
	TypeVirtualRun Type = "virtual_run"
	TypeWalk       Type = "walk"
	TypeHike       Type = "hike"
	TypeRide       Type = "ride"
	TypeWorkout    Type = "workout"
)

// IsRun reports whether the type is one of the running variants.
func (t Type) IsRun() bool {
	return t == TypeRun || t == TypeTrailRun || t == TypeVirtualRun
}

// Display returns a human-readable name for the type.
func (t Type) Display() string {
	switch t {
	case TypeRun:
		return "Run"
	case TypeTrailRun:
		return "Trail Run"
	case TypeVirtualRun:
		return "Virtual Run"
	case TypeWalk:
		return "Walk"
	case TypeHike:
		return "Hike"
	case TypeRide:
		return "Ride"
	case TypeWorkout:
		return "Workout"
	default:
		return "Activity"
	}
}

// ParseType resolves a user-facing string into a Type. Accepts the
// canonical value ("trail_run"), the display name ("Trail Run") and common
// informal aliases ("running", "jog"). Unrecognized input maps to
// TypeUnknown.
func ParseType(input string) Type {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "run", "running", "jog", "jogging":
		return TypeRun
	case "trail_run", "trail", "trailrun":
		return TypeTrailRun
	case "virtual_run", "virtualrun", "treadmill":
		return TypeVirtualRun
	case "walk", "walking":
		return TypeWalk
	case "hike", "hiking":
		return TypeHike
	case "ride", "cycling", "bike", "biking":
		return TypeRide
	case "workout", "training":
		return TypeWorkout
	default:
		return TypeUnknown
	}
}
