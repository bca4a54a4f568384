package analysis

import (
	"math"
	"sort"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// distanceTimePoint is one sample on the cumulative distance/time curve the
// effort search runs over.
type distanceTimePoint struct {
	CumulativeDistanceM float64
	ElapsedTimeSec      float64
}

// effortPoints builds the monotone cumulative curve from the table: distance
// is forced non-decreasing and samples that add no time are collapsed so
// both axes stay valid interpolation supports.
func effortPoints(t *telemetry.Table) []distanceTimePoint {
	n := t.Len()
	if n == 0 {
		return nil
	}
	points := make([]distanceTimePoint, 0, n)
	maxD := 0.0
	for i := 0; i < n; i++ {
		d := t.Distance[i]
		if isFinite(d) && d > maxD {
			maxD = d
		}
		ts := t.Time[i] - t.Time[0]
		if len(points) > 0 && ts <= points[len(points)-1].ElapsedTimeSec {
			points[len(points)-1].CumulativeDistanceM = maxD
			continue
		}
		points = append(points, distanceTimePoint{maxD, ts})
	}
	if len(points) < 2 {
		return nil
	}
	return points
}

// slidingWindowMinTime finds the minimum elapsed time for a contiguous
// segment covering targetDistanceM, interpolating the exact start point so a
// constant-speed activity yields exactly speed*target. Returns 0 when the
// activity never covers the distance.
func slidingWindowMinTime(points []distanceTimePoint, targetDistanceM float64) float64 {
	minTime := math.MaxFloat64
	left := 0

	for right := 1; right < len(points); right++ {
		for left < right-1 {
			windowDist := points[right].CumulativeDistanceM - points[left+1].CumulativeDistanceM
			if windowDist >= targetDistanceM {
				left++
			} else {
				break
			}
		}

		windowDist := points[right].CumulativeDistanceM - points[left].CumulativeDistanceM
		if windowDist >= targetDistanceM {
			exactStartDist := points[right].CumulativeDistanceM - targetDistanceM
			startTime := interpolateTime(points, exactStartDist)
			elapsed := points[right].ElapsedTimeSec - startTime
			if elapsed > 0 && elapsed < minTime {
				minTime = elapsed
			}
		}
	}

	if minTime == math.MaxFloat64 {
		return 0
	}
	return minTime
}

// slidingWindowMaxDistance finds the maximum distance covered by a contiguous
// segment lasting targetDurationS, interpolating the exact window start on
// the time axis. Returns 0 when the activity is shorter than the duration.
func slidingWindowMaxDistance(points []distanceTimePoint, targetDurationS float64) float64 {
	maxDist := 0.0
	left := 0

	for right := 1; right < len(points); right++ {
		for left < right-1 {
			windowTime := points[right].ElapsedTimeSec - points[left+1].ElapsedTimeSec
			if windowTime >= targetDurationS {
				left++
			} else {
				break
			}
		}

		windowTime := points[right].ElapsedTimeSec - points[left].ElapsedTimeSec
		if windowTime >= targetDurationS {
			exactStartTime := points[right].ElapsedTimeSec - targetDurationS
			startDist := interpolateDistance(points, exactStartTime)
			dist := points[right].CumulativeDistanceM - startDist
			if dist > maxDist {
				maxDist = dist
			}
		}
	}
	return maxDist
}

// interpolateTime finds the elapsed time at a given cumulative distance by
// interpolating between the surrounding data points.
func interpolateTime(points []distanceTimePoint, targetDist float64) float64 {
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].CumulativeDistanceM > targetDist
	})

	if idx == 0 {
		return points[0].ElapsedTimeSec
	}
	if idx >= len(points) {
		return points[len(points)-1].ElapsedTimeSec
	}

	p1 := points[idx-1]
	p2 := points[idx]
	distRange := p2.CumulativeDistanceM - p1.CumulativeDistanceM
	if distRange <= 0 {
		return p1.ElapsedTimeSec
	}
	fraction := (targetDist - p1.CumulativeDistanceM) / distRange
	return p1.ElapsedTimeSec + fraction*(p2.ElapsedTimeSec-p1.ElapsedTimeSec)
}

// interpolateDistance is the time-axis counterpart of interpolateTime.
func interpolateDistance(points []distanceTimePoint, targetTime float64) float64 {
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].ElapsedTimeSec > targetTime
	})

	if idx == 0 {
		return points[0].CumulativeDistanceM
	}
	if idx >= len(points) {
		return points[len(points)-1].CumulativeDistanceM
	}

	p1 := points[idx-1]
	p2 := points[idx]
	timeRange := p2.ElapsedTimeSec - p1.ElapsedTimeSec
	if timeRange <= 0 {
		return p1.CumulativeDistanceM
	}
	fraction := (targetTime - p1.ElapsedTimeSec) / timeRange
	return p1.CumulativeDistanceM + fraction*(p2.CumulativeDistanceM-p1.CumulativeDistanceM)
}

// computeBestEffortsByDistance finds the fastest contiguous segment for each
// target distance. Targets the activity never covers are omitted.
func computeBestEffortsByDistance(t *telemetry.Table, targetsKM []float64) []DistanceEffort {
	points := effortPoints(t)
	if points == nil {
		return nil
	}
	totalDist := points[len(points)-1].CumulativeDistanceM

	var out []DistanceEffort
	for _, targetKM := range targetsKM {
		targetM := targetKM * 1000
		if targetM <= 0 || totalDist < targetM {
			continue
		}
		best := slidingWindowMinTime(points, targetM)
		if best <= 0 {
			continue
		}
		out = append(out, DistanceEffort{
			DistanceKM: targetKM,
			TimeS:      best,
			PaceSPerKM: best / targetKM,
		})
	}
	return out
}

// computeBestEffortsByDuration finds the longest contiguous segment for each
// target duration. Targets longer than the activity are omitted.
func computeBestEffortsByDuration(t *telemetry.Table, targetsS []float64) []DurationEffort {
	points := effortPoints(t)
	if points == nil {
		return nil
	}
	totalTime := points[len(points)-1].ElapsedTimeSec

	var out []DurationEffort
	for _, dur := range targetsS {
		if dur <= 0 || totalTime < dur {
			continue
		}
		dist := slidingWindowMaxDistance(points, dur)
		if dist <= 0 {
			continue
		}
		distKM := dist / 1000
		out = append(out, DurationEffort{
			DurationS:  dur,
			DistanceKM: distKM,
			TimeS:      dur,
			PaceSPerKM: dur / distKM,
		})
	}
	return out
}

// computeRacePredictions extrapolates target times with the Riegel formula,
// keeping for each target the base effort that predicts the fastest time.
const riegelExponent = 1.06

func computeRacePredictions(efforts []DistanceEffort, targetsKM []float64) []RacePrediction {
	if len(efforts) == 0 {
		return nil
	}
	var out []RacePrediction
	for _, target := range targetsKM {
		best := RacePrediction{PredictedTimeS: math.NaN()}
		for _, e := range efforts {
			if e.DistanceKM <= 0 || e.TimeS <= 0 {
				continue
			}
			predicted := e.TimeS * math.Pow(target/e.DistanceKM, riegelExponent)
			if predicted > 0 && (math.IsNaN(best.PredictedTimeS) || predicted < best.PredictedTimeS) {
				best = RacePrediction{
					TargetDistanceKM: target,
					PredictedTimeS:   predicted,
					BaseDistanceKM:   e.DistanceKM,
					BaseTimeS:        e.TimeS,
					Exponent:         riegelExponent,
				}
			}
		}
		if !math.IsNaN(best.PredictedTimeS) {
			out = append(out, best)
		}
	}
	return out
}
