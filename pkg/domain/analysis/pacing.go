package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// halfOverlapRatio returns, per point, the fraction of its distance delta
// that falls in the first half of the covered distance. Points wholly in the
// first half get 1, wholly in the second 0, and the point straddling the
// midpoint a fraction, so half-based aggregates stay exact.
func halfOverlapRatio(dist []float64) []float64 {
	out := make([]float64, len(dist))
	total := 0.0
	for _, d := range dist {
		total += d
	}
	if total <= 0 {
		return out
	}
	half := total / 2
	cum := 0.0
	for i, d := range dist {
		prev := cum
		cum += d
		if d <= 0 {
			continue
		}
		out[i] = clip(math.Min(cum, half)-prev, 0, d) / d
	}
	return out
}

// negativeSplit compares average pace over the first and second half of the
// covered distance.
func negativeSplit(dt, dd []float64) (first, second, delta float64) {
	totalDist, totalTime := 0.0, 0.0
	for i := range dd {
		totalDist += dd[i]
		totalTime += dt[i]
	}
	if totalDist <= 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	ratio := halfOverlapRatio(dd)
	timeFirst, distFirst := 0.0, 0.0
	for i := range dd {
		timeFirst += dt[i] * ratio[i]
		distFirst += dd[i] * ratio[i]
	}
	timeSecond := totalTime - timeFirst
	distSecond := totalDist - distFirst

	first, second = math.NaN(), math.NaN()
	if distFirst > 0 {
		first = timeFirst / (distFirst / 1000)
	}
	if distSecond > 0 {
		second = timeSecond / (distSecond / 1000)
	}
	return first, second, second - first
}

// computePacing derives the pacing-quality block from the masked deltas, the
// engine pace and GAP.
func computePacing(t *telemetry.Table, pace, gap, weights []float64, mask []bool) Pacing {
	n := t.Len()
	dt := make([]float64, n)
	dd := make([]float64, n)
	for i := 0; i < n; i++ {
		v := t.DeltaTime[i]
		if !isFinite(v) || v < 0 {
			v = 0
		}
		d := t.DeltaDistance[i]
		if !isFinite(d) || d < 0 {
			d = 0
		}
		if !mask[i] {
			v, d = 0, 0
		}
		dt[i] = v
		dd[i] = d
	}

	first, second, delta := negativeSplit(dt, dd)

	// Drift: unweighted linear fit of pace against covered kilometres.
	cumKM := make([]float64, n)
	cum := 0.0
	var xs, ys []float64
	for i := 0; i < n; i++ {
		cum += dd[i] / 1000
		cumKM[i] = cum
		if isFinite(pace[i]) && weights[i] > 0 {
			xs = append(xs, cumKM[i])
			ys = append(ys, pace[i])
		}
	}
	drift := math.NaN()
	if len(xs) >= 2 && nanMax(xs) > 0 {
		drift = linearSlope(xs, ys)
	}

	stabilityCV, stabilityIQR := math.NaN(), math.NaN()
	if len(ys) > 0 {
		mean := nanMean(ys)
		median := nanMedian(ys)
		if mean > 0 {
			stabilityCV = nanStd(ys) / mean
		}
		if median > 0 {
			stabilityIQR = (nanPercentile(ys, 75) - nanPercentile(ys, 25)) / median
		}
	}

	gapResidual := math.NaN()
	var residuals []float64
	for i := 0; i < n; i++ {
		if isFinite(pace[i]) && weights[i] > 0 && isFinite(gap[i]) {
			residuals = append(residuals, pace[i]-gap[i])
		}
	}
	if len(residuals) > 0 {
		gapResidual = nanMedian(residuals)
	}

	return Pacing{
		PaceFirstHalfSPerKM:  opt(first),
		PaceSecondHalfSPerKM: opt(second),
		PaceDeltaSPerKM:      opt(delta),
		DriftSPerKMPerKM:     opt(drift),
		StabilityCV:          opt(stabilityCV),
		StabilityIQRRatio:    opt(stabilityIQR),
		GAPResidualMedianS:   opt(gapResidual),
	}
}

// cardiacDrift quantifies HR decoupling: the heart-rate to pace ratio is
// compared between the two distance halves (percent rise) and as a weighted
// regression slope over distance, normalized by the mean ratio.
func cardiacDrift(t *telemetry.Table, pace, gap, weights []float64, mask []bool) (driftPct, slopePct float64) {
	driftPct, slopePct = math.NaN(), math.NaN()
	if !t.HasHeartRate() {
		return driftPct, slopePct
	}
	n := t.Len()

	// GAP flattens the terrain effect out of the ratio; raw pace fills in
	// where GAP is undefined.
	ratio := make([]float64, n)
	dd := make([]float64, n)
	for i := 0; i < n; i++ {
		ratio[i] = math.NaN()
		d := t.DeltaDistance[i]
		if !isFinite(d) || d < 0 || !mask[i] {
			d = 0
		}
		dd[i] = d

		hr := t.HeartRate[i]
		p := gap[i]
		if !isFinite(p) {
			p = pace[i]
		}
		if isFinite(hr) && isFinite(p) && p > 0 {
			ratio[i] = hr / p
		}
	}

	ratioFirst := halfOverlapRatio(dd)
	wFirst := make([]float64, n)
	wSecond := make([]float64, n)
	for i := 0; i < n; i++ {
		wFirst[i] = weights[i] * ratioFirst[i]
		if dd[i] > 0 {
			wSecond[i] = weights[i] * (1 - ratioFirst[i])
		}
	}
	meanFirst := weightedMean(ratio, wFirst)
	meanSecond := weightedMean(ratio, wSecond)
	if isFinite(meanFirst) && meanFirst > 0 && isFinite(meanSecond) {
		driftPct = (meanSecond - meanFirst) / meanFirst * 100
	}

	var xs, ys, ws []float64
	cum := 0.0
	for i := 0; i < n; i++ {
		cum += dd[i] / 1000
		if isFinite(ratio[i]) && weights[i] > 0 && mask[i] {
			xs = append(xs, cum)
			ys = append(ys, ratio[i])
			ws = append(ws, weights[i])
		}
	}
	if len(xs) >= 2 {
		span := nanMax(xs) - nanMin(xs)
		slope := weightedSlope(xs, ys, ws)
		meanRatio := weightedMean(ys, ws)
		if isFinite(slope) && span > 0 && isFinite(meanRatio) && meanRatio > 0 {
			slopePct = slope * span / meanRatio * 100
		}
	}
	return driftPct, slopePct
}
