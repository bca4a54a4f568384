// Package telemetry defines the canonical per-point representation of a
// single activity and the validation contract the analysis engine relies on.
package telemetry

import (
	"fmt"
	"math"
)

// Plausible instantaneous running speeds. Samples outside this range are
// treated as GPS noise: speed and pace both become undefined for the point.
const (
	MinSpeedMS = 0.5
	MaxSpeedMS = 8.0
)

// Table holds one activity as parallel columns ordered by elapsed time.
// Missing samples inside a present channel are math.NaN(); a channel that is
// entirely absent for the activity is a nil slice.
type Table struct {
	// Required columns, always non-nil and equal length.
	Time          []float64 // cumulative elapsed seconds since start
	DeltaTime     []float64 // seconds since previous point; NaN or strictly positive
	Distance      []float64 // cumulative metres, non-decreasing
	DeltaDistance []float64 // metres since previous point
	Speed         []float64 // m/s, range-filtered to [MinSpeedMS, MaxSpeedMS]
	Pace          []float64 // s/km, co-derived with Speed

	// Optional channels: nil when the activity never recorded them.
	Elevation []float64 // metres
	HeartRate []float64 // bpm
	Cadence   []float64 // steps/min (both feet)
	Power     []float64 // watts
	Lat       []float64 // degrees
	Lon       []float64 // degrees

	// Running dynamics, recorded by compatible devices only.
	StrideLength        []float64 // metres
	VerticalOscillation []float64 // centimetres
	VerticalRatio       []float64 // percent
	GroundContactTime   []float64 // milliseconds
	GCTBalance          []float64 // percent, left side
}

// Len returns the number of points.
func (t *Table) Len() int { return len(t.Time) }

func (t *Table) HasElevation() bool { return t.Elevation != nil }
func (t *Table) HasHeartRate() bool { return t.HeartRate != nil }
func (t *Table) HasCadence() bool   { return t.Cadence != nil }
func (t *Table) HasPower() bool     { return t.Power != nil }
func (t *Table) HasPosition() bool  { return t.Lat != nil && t.Lon != nil }

// TotalDistance returns the cumulative distance of the last point in metres,
// or 0 for an empty table.
func (t *Table) TotalDistance() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.Distance[t.Len()-1] - t.Distance[0]
}

// TotalTime returns elapsed seconds between the first and last point.
func (t *Table) TotalTime() float64 {
	if t.Len() == 0 {
		return 0
	}
	return t.Time[t.Len()-1] - t.Time[0]
}

// ClampSpeed returns v unchanged when it lies in the plausible running range
// and NaN otherwise.
func ClampSpeed(v float64) float64 {
	if math.IsNaN(v) || v < MinSpeedMS || v > MaxSpeedMS {
		return math.NaN()
	}
	return v
}

// PaceFromSpeed converts m/s to s/km. Non-positive or undefined speed gives
// an undefined pace.
func PaceFromSpeed(speed float64) float64 {
	if math.IsNaN(speed) || speed <= 0 {
		return math.NaN()
	}
	return 1000 / speed
}

// DropEmptyChannels nils out optional channels that carry no finite value,
// so presence checks reflect what the device actually recorded.
func (t *Table) DropEmptyChannels() {
	if !hasFinite(t.Elevation) {
		t.Elevation = nil
	}
	if !hasFinite(t.HeartRate) {
		t.HeartRate = nil
	}
	if !hasFinite(t.Cadence) {
		t.Cadence = nil
	}
	if !hasFinite(t.Power) {
		t.Power = nil
	}
	if !hasFinite(t.Lat) || !hasFinite(t.Lon) {
		t.Lat, t.Lon = nil, nil
	}
	if !hasFinite(t.StrideLength) {
		t.StrideLength = nil
	}
	if !hasFinite(t.VerticalOscillation) {
		t.VerticalOscillation = nil
	}
	if !hasFinite(t.VerticalRatio) {
		t.VerticalRatio = nil
	}
	if !hasFinite(t.GroundContactTime) {
		t.GroundContactTime = nil
	}
	if !hasFinite(t.GCTBalance) {
		t.GCTBalance = nil
	}
}

func hasFinite(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// ValidationError reports the first contract rule a table violates and the
// row it was detected at. Row is -1 for table-level violations.
type ValidationError struct {
	Rule   string
	Row    int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("telemetry contract violation (%s) at row %d: %s", e.Rule, e.Row, e.Detail)
	}
	return fmt.Sprintf("telemetry contract violation (%s): %s", e.Rule, e.Detail)
}

// Validate enforces the table contract: required columns present with equal
// lengths, optional columns either nil or equal length, cumulative time and
// distance finite and non-decreasing, delta-time NaN or strictly positive,
// and speed/pace defined together. The engine trusts a validated table and
// does not re-check these invariants.
func (t *Table) Validate() error {
	n := len(t.Time)
	required := map[string][]float64{
		"delta_time":     t.DeltaTime,
		"distance":       t.Distance,
		"delta_distance": t.DeltaDistance,
		"speed":          t.Speed,
		"pace":           t.Pace,
	}
	for name, col := range required {
		if col == nil && n > 0 {
			return &ValidationError{Rule: "required_column", Row: -1, Detail: fmt.Sprintf("column %q is missing", name)}
		}
		if len(col) != n {
			return &ValidationError{Rule: "column_length", Row: -1,
				Detail: fmt.Sprintf("column %q has %d rows, want %d", name, len(col), n)}
		}
	}
	optional := map[string][]float64{
		"elevation":            t.Elevation,
		"heart_rate":           t.HeartRate,
		"cadence":              t.Cadence,
		"power":                t.Power,
		"lat":                  t.Lat,
		"lon":                  t.Lon,
		"stride_length":        t.StrideLength,
		"vertical_oscillation": t.VerticalOscillation,
		"vertical_ratio":       t.VerticalRatio,
		"ground_contact_time":  t.GroundContactTime,
		"gct_balance":          t.GCTBalance,
	}
	for name, col := range optional {
		if col != nil && len(col) != n {
			return &ValidationError{Rule: "column_length", Row: -1,
				Detail: fmt.Sprintf("column %q has %d rows, want %d", name, len(col), n)}
		}
	}

	for i := 0; i < n; i++ {
		if math.IsNaN(t.Time[i]) || math.IsInf(t.Time[i], 0) {
			return &ValidationError{Rule: "time_finite", Row: i, Detail: "cumulative time must be finite"}
		}
		if i > 0 && t.Time[i] < t.Time[i-1] {
			return &ValidationError{Rule: "time_monotone", Row: i,
				Detail: fmt.Sprintf("time went backwards: %.3f after %.3f", t.Time[i], t.Time[i-1])}
		}
		if math.IsNaN(t.Distance[i]) || math.IsInf(t.Distance[i], 0) {
			return &ValidationError{Rule: "distance_finite", Row: i, Detail: "cumulative distance must be finite"}
		}
		if i > 0 && t.Distance[i] < t.Distance[i-1] {
			return &ValidationError{Rule: "distance_monotone", Row: i,
				Detail: fmt.Sprintf("distance went backwards: %.2f after %.2f", t.Distance[i], t.Distance[i-1])}
		}
		if dt := t.DeltaTime[i]; !math.IsNaN(dt) && dt <= 0 {
			return &ValidationError{Rule: "delta_time_positive", Row: i,
				Detail: fmt.Sprintf("delta time must be NaN or > 0, got %.3f", dt)}
		}
		speedDefined := !math.IsNaN(t.Speed[i])
		paceDefined := !math.IsNaN(t.Pace[i])
		if speedDefined != paceDefined {
			return &ValidationError{Rule: "speed_pace_coderived", Row: i,
				Detail: "speed and pace must be defined together"}
		}
	}
	return nil
}
