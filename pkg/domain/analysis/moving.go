package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// computeMoving classifies every point as moving or paused. Speed is
// median-filtered (window 3) to ignore single-sample GPS dropouts, then runs
// of sub-threshold samples are accumulated by recorded time: only runs
// lasting at least minPause seconds become a pause. A confirmed pause also
// swallows the first sample after the run, since that sample's delta still
// belongs to the stationary period.
func computeMoving(t *telemetry.Table, threshold, minPause float64) []bool {
	n := t.Len()
	moving := make([]bool, n)
	for i := range moving {
		moving[i] = true
	}
	if n == 0 {
		return moving
	}

	filled := make([]float64, n)
	for i, v := range t.Speed {
		if isFinite(v) {
			filled[i] = v
		}
	}
	filtered := rollingMedian(filled, 3)

	// Active samples are the ones carrying recorded time.
	active := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if dt := t.DeltaTime[i]; isFinite(dt) && dt > 0 {
			active = append(active, i)
		}
	}

	runStart := -1
	runDur := 0.0
	closeRun := func(endActive int) {
		if runStart < 0 {
			return
		}
		if runDur >= minPause {
			from := active[runStart]
			to := n - 1
			if endActive < len(active) {
				to = active[endActive]
			}
			for i := from; i <= to; i++ {
				moving[i] = false
			}
		}
		runStart = -1
		runDur = 0
	}

	for k, idx := range active {
		if filtered[idx] < threshold {
			if runStart < 0 {
				runStart = k
			}
			runDur += t.DeltaTime[idx]
		} else {
			closeRun(k)
		}
	}
	closeRun(len(active))
	return moving
}

// movingTimes aggregates the pause structure of a classified table: total
// moving and paused seconds plus the single longest pause.
func movingTimes(t *telemetry.Table, moving []bool) (movingS, pauseS, longestPauseS float64) {
	cur := 0.0
	for i := 0; i < t.Len(); i++ {
		dt := t.DeltaTime[i]
		if !isFinite(dt) || dt <= 0 {
			continue
		}
		if moving[i] {
			movingS += dt
			if cur > longestPauseS {
				longestPauseS = cur
			}
			cur = 0
		} else {
			pauseS += dt
			cur += dt
		}
	}
	if cur > longestPauseS {
		longestPauseS = cur
	}
	return movingS, pauseS, longestPauseS
}

// enginePace derives the per-point pace used by all downstream statistics:
// delta-derived (dt/dd scaled to s/km) and defined only on moving points that
// actually advanced.
func enginePace(t *telemetry.Table, moving []bool) []float64 {
	n := t.Len()
	pace := make([]float64, n)
	for i := 0; i < n; i++ {
		pace[i] = math.NaN()
		if !moving[i] {
			continue
		}
		dt, dd := t.DeltaTime[i], t.DeltaDistance[i]
		if !isFinite(dt) || !isFinite(dd) || dd <= 0 {
			continue
		}
		pace[i] = dt / dd * 1000
	}
	return pace
}

// timeWeights builds the per-point statistic weights: recorded seconds,
// zeroed on paused points unless elapsed-time weighting is requested.
func timeWeights(t *telemetry.Table, moving []bool, elapsed bool) []float64 {
	n := t.Len()
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		dt := t.DeltaTime[i]
		if !isFinite(dt) || dt < 0 {
			dt = 0
		}
		if !elapsed && !moving[i] {
			dt = 0
		}
		w[i] = dt
	}
	return w
}
