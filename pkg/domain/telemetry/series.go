package telemetry

import "math"

// Series is one named, chart-ready column with display metadata.
type Series struct {
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Unit   string    `json:"unit"`
	Values []float64 `json:"values"`
}

// SeriesSet is an ordered collection of named series sharing one index. The
// API and CLIs build a set from the raw table plus the derived analysis
// columns, then slice it per request.
type SeriesSet struct {
	order  []string
	series map[string]Series
}

func NewSeriesSet() *SeriesSet {
	return &SeriesSet{series: make(map[string]Series)}
}

// Add registers a series under key, replacing any previous definition while
// keeping its original position in the ordering.
func (s *SeriesSet) Add(key, label, unit string, values []float64) {
	if _, exists := s.series[key]; !exists {
		s.order = append(s.order, key)
	}
	s.series[key] = Series{Key: key, Label: label, Unit: unit, Values: values}
}

// Get returns the series for key, if registered.
func (s *SeriesSet) Get(key string) (Series, bool) {
	ser, ok := s.series[key]
	return ser, ok
}

// Keys returns the registered keys in insertion order.
func (s *SeriesSet) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// BaseSeries builds the chartable series present on every table: distance,
// elapsed time, speed, pace, plus whichever optional channels the activity
// recorded.
func BaseSeriesSet(t *Table) *SeriesSet {
	s := NewSeriesSet()
	s.Add("distance", "Distance", "m", t.Distance)
	s.Add("time", "Elapsed time", "s", t.Time)
	s.Add("speed", "Speed", "m/s", t.Speed)
	s.Add("pace", "Pace", "s/km", t.Pace)
	if t.HasElevation() {
		s.Add("elevation", "Elevation", "m", t.Elevation)
	}
	if t.HasHeartRate() {
		s.Add("heart_rate", "Heart rate", "bpm", t.HeartRate)
	}
	if t.HasCadence() {
		s.Add("cadence", "Cadence", "spm", t.Cadence)
	}
	if t.HasPower() {
		s.Add("power", "Power", "W", t.Power)
	}
	return s
}

// Downsample reduces values to at most maxPoints by stride picking, always
// keeping the final point so chart extents stay exact. maxPoints < 2 or a
// short input returns the input as-is.
func Downsample(values []float64, maxPoints int) []float64 {
	n := len(values)
	if maxPoints < 2 || n <= maxPoints {
		return values
	}
	stride := int(math.Ceil(float64(n) / float64(maxPoints)))
	out := make([]float64, 0, maxPoints+1)
	last := -1
	for i := 0; i < n; i += stride {
		out = append(out, values[i])
		last = i
	}
	if last != n-1 {
		out = append(out, values[n-1])
	}
	return out
}

// DownsampleSet applies Downsample to every series in the set, returning a
// new set with the same keys and metadata.
func (s *SeriesSet) DownsampleSet(maxPoints int) *SeriesSet {
	out := NewSeriesSet()
	for _, key := range s.order {
		ser := s.series[key]
		out.Add(ser.Key, ser.Label, ser.Unit, Downsample(ser.Values, maxPoints))
	}
	return out
}
