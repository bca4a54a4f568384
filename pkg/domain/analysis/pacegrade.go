package analysis

import (
	"math"
	"sort"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// Pace-vs-grade tuning. Bins below the time or effective-sample gates are
// dropped; winsorization kicks in only on well-populated bins.
const (
	gradeBinLow    = -20.0
	gradeBinHigh   = 20.0
	gradeBinWidth  = 0.5
	minBinTimeS    = 20.0
	minBinNEff     = 5.0
	winsorMinTimeS = 30.0
	winsorMinNEff  = 8.0
	winsorKIQR     = 2.0
	winsorKMAD     = 4.0
)

// winsorLimitsIQR bounds a bin at weighted quartiles +/- k*IQR. A degenerate
// IQR yields NaN bounds so the caller can fall back to the MAD rule.
func winsorLimitsIQR(values, weights []float64, k float64) (lo, hi float64) {
	q25 := weightedQuantile(values, weights, 0.25)
	q75 := weightedQuantile(values, weights, 0.75)
	if !isFinite(q25) || !isFinite(q75) {
		return math.NaN(), math.NaN()
	}
	iqr := q75 - q25
	if !isFinite(iqr) || iqr <= 1e-9 {
		return math.NaN(), math.NaN()
	}
	return q25 - k*iqr, q75 + k*iqr
}

// winsorLimitsMAD bounds a bin at the weighted median +/- k sigma, with
// sigma estimated from the weighted median absolute deviation.
func winsorLimitsMAD(values, weights []float64, kSigma float64) (lo, hi float64) {
	m := weightedQuantile(values, weights, 0.5)
	if !isFinite(m) {
		return math.NaN(), math.NaN()
	}
	absDev := make([]float64, len(values))
	for i, v := range values {
		absDev[i] = math.Abs(v - m)
	}
	mad := weightedQuantile(absDev, weights, 0.5)
	if !isFinite(mad) || mad <= 1e-9 {
		return math.NaN(), math.NaN()
	}
	sigma := 1.4826 * mad
	return m - kSigma*sigma, m + kSigma*sigma
}

// computePaceVsGrade bins moving points into fixed 0.5% grade buckets and
// reports time-weighted robust pace statistics per bucket, alongside the
// unweighted median and sample deviation kept for older consumers. Outliers
// inside well-populated bins are winsorized before any statistic is taken,
// and the clipped weight share is reported per bin.
func computePaceVsGrade(t *telemetry.Table, grade []float64, moving []bool) []GradeBinRow {
	n := t.Len()
	if n == 0 {
		return nil
	}

	nBins := int((gradeBinHigh - gradeBinLow) / gradeBinWidth)
	type binData struct {
		pace, weight, grade []float64
	}
	bins := make([]binData, nBins)

	for i := 0; i < n; i++ {
		dt := t.DeltaTime[i]
		if !moving[i] || !isFinite(dt) || dt <= 0 {
			continue
		}
		g := grade[i]
		p := t.Pace[i]
		if !isFinite(g) || !isFinite(p) || p <= 0 {
			continue
		}
		g = clip(g, gradeBinLow, gradeBinHigh)

		// Half-open on the left, matching (low, high] buckets with the lowest
		// edge included.
		idx := int(math.Ceil((g-gradeBinLow)/gradeBinWidth)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > nBins-1 {
			idx = nBins - 1
		}
		bins[idx].pace = append(bins[idx].pace, p)
		bins[idx].weight = append(bins[idx].weight, dt)
		bins[idx].grade = append(bins[idx].grade, g)
	}

	var rows []GradeBinRow
	for _, b := range bins {
		if len(b.pace) == 0 {
			continue
		}
		timeS := nanSum(b.weight)
		nEff := effectiveSampleSize(b.weight)

		lo, hi := math.NaN(), math.NaN()
		clipFrac := 0.0
		if timeS >= winsorMinTimeS && nEff >= winsorMinNEff {
			lo, hi = winsorLimitsIQR(b.pace, b.weight, winsorKIQR)
			if !(isFinite(lo) && isFinite(hi) && hi > lo) {
				lo, hi = winsorLimitsMAD(b.pace, b.weight, winsorKMAD)
			}
		}

		paceUsed := b.pace
		if isFinite(lo) && isFinite(hi) && hi > lo {
			clipped := make([]float64, len(b.pace))
			outW := 0.0
			for i, p := range b.pace {
				if p < lo || p > hi {
					outW += b.weight[i]
				}
				clipped[i] = clip(p, lo, hi)
			}
			if timeS > 0 {
				clipFrac = outW / timeS
			}
			paceUsed = clipped
		}

		q25 := weightedQuantile(paceUsed, b.weight, 0.25)
		q50 := weightedQuantile(paceUsed, b.weight, 0.50)
		q75 := weightedQuantile(paceUsed, b.weight, 0.75)
		iqr := math.NaN()
		if isFinite(q25) && isFinite(q75) {
			iqr = q75 - q25
		}

		med := q50
		if !isFinite(med) {
			med = nanMedian(paceUsed)
		}
		center := weightedQuantile(b.grade, b.weight, 0.50)

		if !isFinite(center) || !isFinite(med) {
			continue
		}
		if timeS < minBinTimeS || nEff < minBinNEff {
			continue
		}

		rows = append(rows, GradeBinRow{
			GradeCenter:     center,
			PaceMedSPerKM:   med,
			PaceStdSPerKM:   sampleStd(paceUsed),
			PaceN:           len(b.pace),
			TimeSBin:        timeS,
			PaceMeanWSPerKM: weightedMean(paceUsed, b.weight),
			PaceQ25WSPerKM:  q25,
			PaceQ50WSPerKM:  q50,
			PaceQ75WSPerKM:  q75,
			PaceIQRWSPerKM:  iqr,
			PaceStdWSPerKM:  weightedStd(paceUsed, b.weight),
			PaceNEff:        nEff,
			OutlierClipFrac: clipFrac,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].GradeCenter < rows[j].GradeCenter })
	return rows
}
