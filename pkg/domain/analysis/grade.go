package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// Energy-cost factors of uphill running relative to flat, per percent grade
// from 0 to 10. Interpolated linearly and reused inverted for downhill, where
// the benefit saturates at minDownhillFactor.
var gradeFactors = [11]float64{
	1.000, 1.042, 1.082, 1.120, 1.157, 1.193, 1.228, 1.262, 1.295, 1.327, 1.358,
}

const minDownhillFactor = 0.70

// computeGrade derives the smoothed grade series in percent. Elevation is
// smoothed with a centered rolling mean before differencing, and the slope is
// trusted only where the point advanced at least minDist metres. Without an
// elevation channel every grade is undefined.
func computeGrade(t *telemetry.Table, smoothWindow int, minDist float64) []float64 {
	n := t.Len()
	grade := make([]float64, n)
	for i := range grade {
		grade[i] = math.NaN()
	}
	if !t.HasElevation() || n < 2 {
		return grade
	}
	smooth := rollingMean(t.Elevation, smoothWindow)
	for i := 1; i < n; i++ {
		dd := t.DeltaDistance[i]
		if !isFinite(dd) || dd < minDist {
			continue
		}
		de := smooth[i] - smooth[i-1]
		if !isFinite(de) {
			continue
		}
		grade[i] = de / dd * 100
	}
	return grade
}

// gradeFactor returns the pace-adjustment divisor for a grade in percent.
// Magnitudes beyond 10% use the 10% factor.
func gradeFactor(gradePct float64) float64 {
	if !isFinite(gradePct) {
		return math.NaN()
	}
	mag := clip(math.Abs(gradePct), 0, 10)
	lo := int(math.Floor(mag))
	hi := lo + 1
	if hi > 10 {
		hi = 10
	}
	frac := mag - float64(lo)
	f := gradeFactors[lo] + frac*(gradeFactors[hi]-gradeFactors[lo])
	if gradePct < 0 {
		return math.Max(1/f, minDownhillFactor)
	}
	return f
}

// computeGAP converts raw pace to grade-adjusted pace per point. Undefined
// pace or grade gives undefined GAP.
func computeGAP(pace, grade []float64) []float64 {
	out := make([]float64, len(pace))
	for i, p := range pace {
		f := gradeFactor(grade[i])
		if !isFinite(p) || !isFinite(f) || f <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = p / f
	}
	return out
}
