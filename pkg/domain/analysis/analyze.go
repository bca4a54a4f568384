// Package analysis turns a validated telemetry table into the full activity
// report: moving detection, grade and grade-adjusted pace, zones, climbs,
// best efforts, splits, pacing quality and the power model. Everything is
// pure computation on the input table; the package never touches IO.
package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// EngineVersion labels stored results. Bump it when an algorithm change
// makes previously stored analyses incomparable with fresh ones.
const EngineVersion = "v1"

// Analyze runs the whole pipeline over one activity. The table must satisfy
// the telemetry contract; Validate is re-run here so callers handing over
// hand-built tables fail loudly instead of producing garbage. An empty table
// yields an empty neutral result.
func Analyze(t *telemetry.Table, params Params) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	p := params.withDefaults()

	if t.Len() == 0 {
		return &Result{}, nil
	}

	moving := computeMoving(t, p.PauseSpeedThreshold, p.MinPauseDuration)
	movingS, pauseS, longestPauseS := movingTimes(t, moving)

	grade := computeGrade(t, p.GradeSmoothWindow, p.MinGradeDistance)
	gap := computeGAP(t.Pace, grade)

	// Statistics weight by moving time unless elapsed-time weighting was
	// requested; the mask mirrors that choice.
	mask := moving
	if p.ElapsedTimeWeights {
		mask = make([]bool, t.Len())
		for i := range mask {
			mask[i] = true
		}
	}
	pace := enginePace(t, mask)
	weights := timeWeights(t, moving, p.ElapsedTimeWeights)

	// Under elapsed-time weighting the pause disappears from the statistics
	// but the longest-pause figure still reflects the real mask.
	if p.ElapsedTimeWeights {
		movingS = nanSum(weights)
		pauseS = math.Max(t.TotalTime()-movingS, 0)
	}

	summary := computeSummary(t, pace, gap, grade, weights, mask, movingS, pauseS, longestPauseS)

	res := &Result{
		Summary: summary,
		Pacing:  computePacing(t, pace, gap, weights, mask),
	}

	if t.HasHeartRate() {
		hrMaxObs, hrMinObs := math.NaN(), math.NaN()
		for i, v := range t.HeartRate {
			if isFinite(v) && weights[i] > 0 {
				if math.IsNaN(hrMaxObs) || v > hrMaxObs {
					hrMaxObs = v
				}
				if math.IsNaN(hrMinObs) || v < hrMinObs {
					hrMinObs = v
				}
			}
		}
		hrMaxUsed := p.HRMax
		if !(hrMaxUsed > 0) {
			hrMaxUsed = hrMaxObs
		}
		zones := buildZoneTable(hrRatios(t.HeartRate, hrMaxUsed, p.HRRest, p.UseHRR), weights, hrZones, "")
		res.HeartRate = &HeartRateReport{
			MeanBPM:   opt(weightedMean(t.HeartRate, weights)),
			MaxBPM:    opt(hrMaxObs),
			MinBPM:    opt(hrMinObs),
			HRMaxUsed: opt(hrMaxUsed),
			Zones:     zones,
		}
		if trimp := edwardsTRIMP(zones); isFinite(trimp) {
			res.TrainingLoad = &TrainingLoad{TRIMP: trimp, Method: "edwards"}
		}

		driftPct, slopePct := cardiacDrift(t, pace, gap, weights, mask)
		res.Pacing.CardiacDriftPct = opt(driftPct)
		res.Pacing.CardiacDriftSlopePct = opt(slopePct)
	}

	res.Cadence = computeCadenceReport(t, weights, p.CadenceTarget)
	res.RunningDynamics = computeRunningDynamics(t, weights, summary.StepLengthEstM)
	res.Power = computePowerReport(t, weights, mask, movingS, p.FTP)

	threshold := p.PaceThreshold
	if !(threshold > 0) && summary.PaceMedianSPerKM != nil {
		threshold = *summary.PaceMedianSPerKM
	}
	if threshold > 0 {
		res.PaceZones = buildZoneTable(scaledRatios(pace, threshold), weights, paceZones, " threshold")
		res.Pacing.PaceThresholdSPerKM = opt(threshold)
	}

	res.PaceVsGrade = computePaceVsGrade(t, grade, moving)
	res.Climbs = computeClimbs(t, grade, p.Climb)
	res.BestByDistance = computeBestEffortsByDistance(t, p.DistanceTargetsKM)
	res.BestByDuration = computeBestEffortsByDuration(t, p.DurationTargetsS)
	res.RacePredictions = computeRacePredictions(res.BestByDistance, p.PredictionKM)
	res.Splits = computeSplits(t, p.SplitDistanceM)

	res.Derived = &DerivedSeries{Grade: grade, Moving: moving, GAP: gap}
	return res, nil
}
