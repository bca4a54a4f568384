package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// rollingPace computes a trailing window pace (s/km) over compacted moving
// samples: at each sample, the pace of the shortest trailing stretch of
// moving time covering windowS seconds. Undefined until the stretch fills.
func rollingPace(dt, dd []float64, windowS float64) []float64 {
	n := len(dt)
	out := make([]float64, n)
	cumT := make([]float64, n+1)
	cumD := make([]float64, n+1)
	for i := 0; i < n; i++ {
		t, d := dt[i], dd[i]
		if t < 0 {
			t = 0
		}
		if d < 0 {
			d = 0
		}
		cumT[i+1] = cumT[i] + t
		cumD[i+1] = cumD[i] + d
	}
	j := 0
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
		endT := cumT[i+1]
		for j < i && endT-cumT[j+1] >= windowS {
			j++
		}
		timeWin := endT - cumT[j]
		distWin := cumD[i+1] - cumD[j]
		if timeWin >= windowS && distWin > 0 {
			out[i] = timeWin / (distWin / 1000)
		}
	}
	return out
}

// robustBestPace estimates the best sustained pace as the 1st percentile of
// the 30-second rolling pace, confined to plausible running paces so single
// GPS spikes cannot win. Falls back to instantaneous pace when the activity
// is too short for the window.
func robustBestPace(t *telemetry.Table, mask []bool) float64 {
	const (
		windowS = 30.0
		paceLo  = 120.0
		paceHi  = 1800.0
	)
	var dt, dd []float64
	for i := 0; i < t.Len(); i++ {
		a, b := t.DeltaTime[i], t.DeltaDistance[i]
		if !isFinite(a) || a <= 0 || !isFinite(b) || b < 0.5 || !mask[i] {
			continue
		}
		dt = append(dt, a)
		dd = append(dd, b)
	}
	if len(dt) == 0 {
		return math.NaN()
	}

	roll := rollingPace(dt, dd, windowS)
	var vals []float64
	for _, v := range roll {
		if isFinite(v) && v >= paceLo && v <= paceHi {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		for i := range dt {
			if dd[i] > 0 {
				p := dt[i] / dd[i] * 1000
				if p >= paceLo && p <= paceHi {
					vals = append(vals, p)
				}
			}
		}
	}
	return nanPercentile(vals, 1)
}

// elevationTotals computes raw gain/loss plus a filtered variant that median
// smooths the profile and ignores sub-half-metre wiggles.
func elevationTotals(elev []float64) (gain, loss, gainFilt, lossFilt float64) {
	gainFilt, lossFilt = math.NaN(), math.NaN()
	if len(elev) < 2 {
		return 0, 0, gainFilt, lossFilt
	}
	for i := 1; i < len(elev); i++ {
		d := elev[i] - elev[i-1]
		if !isFinite(d) {
			continue
		}
		if d > 0 {
			gain += d
		} else {
			loss += -d
		}
	}

	smooth := rollingMedian(elev, 5)
	gainFilt, lossFilt = 0, 0
	for i := 1; i < len(smooth); i++ {
		d := smooth[i] - smooth[i-1]
		if !isFinite(d) || math.Abs(d) < 0.5 {
			continue
		}
		if d > 0 {
			gainFilt += d
		} else {
			lossFilt += -d
		}
	}
	return gain, loss, gainFilt, lossFilt
}

// computeSummary assembles the headline scalars. All statistics weight by
// the supplied per-point time weights; speed-derived figures additionally
// require real distance progress per sample.
func computeSummary(t *telemetry.Table, pace, gap, grade, weights []float64, mask []bool, movingS, pauseS, longestPauseS float64) Summary {
	n := t.Len()
	s := Summary{
		TotalTimeS:    t.TotalTime(),
		MovingTimeS:   movingS,
		PauseTimeS:    pauseS,
		LongestPauseS: longestPauseS,
	}

	movingDistM := 0.0
	for i := 0; i < n; i++ {
		if dd := t.DeltaDistance[i]; mask[i] && isFinite(dd) && dd > 0 {
			movingDistM += dd
		}
	}
	s.DistanceKM = t.TotalDistance() / 1000
	s.MovingDistanceKM = movingDistM / 1000

	if movingDistM > 0 {
		s.AveragePaceSPerKM = opt(movingS / (movingDistM / 1000))
	}
	if movingS > 0 {
		s.AverageSpeedKMH = opt((movingDistM / 1000) / (movingS / 3600))
	}

	// Delta-derived speed, gated on real distance progress per sample.
	speedMS := make([]float64, n)
	for i := 0; i < n; i++ {
		speedMS[i] = math.NaN()
		dt, dd := t.DeltaTime[i], t.DeltaDistance[i]
		if mask[i] && isFinite(dt) && dt > 0 && isFinite(dd) && dd >= 0.5 {
			speedMS[i] = dd / dt
		}
	}
	if maxSpeed := nanMax(speedMS); isFinite(maxSpeed) {
		s.MaxSpeedKMH = opt(maxSpeed * 3.6)
	}
	s.BestPaceSPerKM = opt(robustBestPace(t, mask))

	s.GAPMeanSPerKM = opt(weightedMean(gap, weights))

	var paceVals []float64
	for i := 0; i < n; i++ {
		if isFinite(pace[i]) && weights[i] > 0 {
			paceVals = append(paceVals, pace[i])
		}
	}
	if len(paceVals) > 0 {
		s.PaceMedianSPerKM = opt(nanMedian(paceVals))
		s.PaceP10SPerKM = opt(nanPercentile(paceVals, 10))
		s.PaceP90SPerKM = opt(nanPercentile(paceVals, 90))
	}

	elevationGain := 0.0
	if t.HasElevation() {
		elev := fillGaps(t.Elevation)
		gain, loss, gainFilt, lossFilt := elevationTotals(elev)
		elevationGain = gain
		s.ElevationGainM = opt(gain)
		s.ElevationLossM = opt(loss)
		s.ElevationGainFiltM = opt(gainFilt)
		s.ElevationLossFiltM = opt(lossFilt)
		s.ElevationMinM = opt(nanMin(elev))
		s.ElevationMaxM = opt(nanMax(elev))
	}

	// Grade summary weights by distance covered, not time.
	gradeMasked := make([]float64, n)
	gradeWeights := make([]float64, n)
	for i := 0; i < n; i++ {
		gradeMasked[i] = math.NaN()
		if mask[i] {
			gradeMasked[i] = grade[i]
			if dd := t.DeltaDistance[i]; isFinite(dd) && dd > 0 {
				gradeWeights[i] = dd
			}
		}
	}
	s.GradeMeanPct = opt(weightedMean(gradeMasked, gradeWeights))
	var gradeClipped []float64
	for i := 0; i < n; i++ {
		if isFinite(gradeMasked[i]) && gradeWeights[i] > 0 {
			gradeClipped = append(gradeClipped, clip(gradeMasked[i], -30, 30))
		}
	}
	s.GradeMinPct = opt(nanPercentile(gradeClipped, 1))
	s.GradeMaxPct = opt(nanPercentile(gradeClipped, 99))

	if movingS > 0 && isFinite(elevationGain) {
		s.VAMMPerH = opt(elevationGain / (movingS / 3600))
	}

	if t.HasCadence() {
		steps := 0.0
		any := false
		stepLen := make([]float64, n)
		for i := 0; i < n; i++ {
			stepLen[i] = math.NaN()
			cad := t.Cadence[i]
			if !isFinite(cad) || cad <= 0 || weights[i] <= 0 {
				continue
			}
			steps += cad * weights[i] / 60
			any = true
			if isFinite(speedMS[i]) && speedMS[i] > 0 {
				stepLen[i] = speedMS[i] * 60 / cad
			}
		}
		if any {
			s.StepsTotal = opt(steps)
			s.StepLengthEstM = opt(weightedMean(stepLen, weights))
		}
	}

	return s
}

// computeCadenceReport summarises cadence against the target.
func computeCadenceReport(t *telemetry.Table, weights []float64, targetSPM float64) *CadenceReport {
	if !t.HasCadence() {
		return nil
	}
	cad := t.Cadence
	report := &CadenceReport{
		MeanSPM: opt(weightedMean(cad, weights)),
		MaxSPM:  opt(nanMax(cad)),
	}
	if targetSPM > 0 {
		report.TargetSPM = opt(targetSPM)
		total, above := 0.0, 0.0
		for i, v := range cad {
			if !isFinite(v) || weights[i] <= 0 {
				continue
			}
			total += weights[i]
			if v >= targetSPM {
				above += weights[i]
			}
		}
		if total > 0 {
			report.AboveTargetPct = opt(above / total * 100)
		}
	}
	return report
}

// computeRunningDynamics averages the advanced running channels. Stride
// length falls back to the cadence/speed estimate, and vertical ratio to the
// oscillation/stride quotient, when the device did not record them.
func computeRunningDynamics(t *telemetry.Table, weights []float64, stepLengthEst *float64) *RunningDynamics {
	stride := math.NaN()
	if t.StrideLength != nil {
		stride = weightedMean(t.StrideLength, weights)
	}
	if !isFinite(stride) && stepLengthEst != nil {
		stride = *stepLengthEst
	}

	osc := math.NaN()
	if t.VerticalOscillation != nil {
		osc = weightedMean(t.VerticalOscillation, weights)
	}

	vratio := math.NaN()
	if t.VerticalRatio != nil {
		vratio = weightedMean(t.VerticalRatio, weights)
	} else if isFinite(osc) && isFinite(stride) && stride > 0 {
		vratio = osc / stride
	}

	gct := math.NaN()
	if t.GroundContactTime != nil {
		gct = weightedMean(t.GroundContactTime, weights)
	}
	balance := math.NaN()
	if t.GCTBalance != nil {
		balance = weightedMean(t.GCTBalance, weights)
	}

	if !isFinite(stride) && !isFinite(osc) && !isFinite(vratio) && !isFinite(gct) && !isFinite(balance) {
		return nil
	}
	return &RunningDynamics{
		StrideLengthMeanM:         opt(stride),
		VerticalOscillationMeanCM: opt(osc),
		VerticalRatioMeanPct:      opt(vratio),
		GroundContactTimeMeanMS:   opt(gct),
		GCTBalanceMeanPct:         opt(balance),
	}
}
