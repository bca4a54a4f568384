package analysis

import "math"

// Result is everything one Analyze call produces. Optional scalars are
// *float64 with nil meaning undefined, so the whole structure is JSON-safe:
// no NaN ever reaches an encoder. Series inside Derived keep NaN markers for
// charting clients that understand them.
type Result struct {
	Summary         Summary           `json:"summary"`
	HeartRate       *HeartRateReport  `json:"heart_rate,omitempty"`
	Cadence         *CadenceReport    `json:"cadence,omitempty"`
	Power           *PowerReport      `json:"power,omitempty"`
	PaceZones       []ZoneRow         `json:"pace_zones,omitempty"`
	RunningDynamics *RunningDynamics  `json:"running_dynamics,omitempty"`
	TrainingLoad    *TrainingLoad     `json:"training_load,omitempty"`
	Pacing          Pacing            `json:"pacing"`
	PaceVsGrade     []GradeBinRow     `json:"pace_vs_grade,omitempty"`
	Climbs          []Climb           `json:"climbs,omitempty"`
	BestByDistance  []DistanceEffort  `json:"best_efforts_by_distance,omitempty"`
	BestByDuration  []DurationEffort  `json:"best_efforts_by_duration,omitempty"`
	RacePredictions []RacePrediction  `json:"race_predictions,omitempty"`
	Splits          []Split           `json:"splits,omitempty"`
	Derived         *DerivedSeries    `json:"derived,omitempty"`
}

// Summary carries the headline scalars of the activity.
type Summary struct {
	TotalTimeS           float64  `json:"total_time_s"`
	MovingTimeS          float64  `json:"moving_time_s"`
	PauseTimeS           float64  `json:"pause_time_s"`
	LongestPauseS        float64  `json:"longest_pause_s"`
	DistanceKM           float64  `json:"distance_km"`
	MovingDistanceKM     float64  `json:"moving_distance_km"`
	AveragePaceSPerKM    *float64 `json:"average_pace_s_per_km"`
	AverageSpeedKMH      *float64 `json:"average_speed_kmh"`
	MaxSpeedKMH          *float64 `json:"max_speed_kmh"`
	BestPaceSPerKM       *float64 `json:"best_pace_s_per_km"`
	GAPMeanSPerKM        *float64 `json:"gap_mean_s_per_km"`
	PaceMedianSPerKM     *float64 `json:"pace_median_s_per_km"`
	PaceP10SPerKM        *float64 `json:"pace_p10_s_per_km"`
	PaceP90SPerKM        *float64 `json:"pace_p90_s_per_km"`
	ElevationGainM       *float64 `json:"elevation_gain_m"`
	ElevationLossM       *float64 `json:"elevation_loss_m"`
	ElevationGainFiltM   *float64 `json:"elevation_gain_filtered_m"`
	ElevationLossFiltM   *float64 `json:"elevation_loss_filtered_m"`
	ElevationMinM        *float64 `json:"elevation_min_m"`
	ElevationMaxM        *float64 `json:"elevation_max_m"`
	GradeMeanPct         *float64 `json:"grade_mean_pct"`
	GradeMinPct          *float64 `json:"grade_min_pct"`
	GradeMaxPct          *float64 `json:"grade_max_pct"`
	VAMMPerH             *float64 `json:"vam_m_h"`
	StepsTotal           *float64 `json:"steps_total"`
	StepLengthEstM       *float64 `json:"step_length_est_m"`
}

// ZoneRow is one band of a time-in-zone table. High is nil for the
// open-ended top zone.
type ZoneRow struct {
	Zone    string   `json:"zone"`
	Range   string   `json:"range"`
	Low     float64  `json:"low"`
	High    *float64 `json:"high"`
	TimeS   float64  `json:"time_s"`
	TimePct float64  `json:"time_pct"`
}

// HeartRateReport summarises the heart-rate channel.
type HeartRateReport struct {
	MeanBPM   *float64  `json:"mean_bpm"`
	MaxBPM    *float64  `json:"max_bpm"`
	MinBPM    *float64  `json:"min_bpm"`
	HRMaxUsed *float64  `json:"hr_max_used"`
	Zones     []ZoneRow `json:"zones,omitempty"`
}

// CadenceReport summarises the cadence channel against a target.
type CadenceReport struct {
	MeanSPM        *float64 `json:"mean_spm"`
	MaxSPM         *float64 `json:"max_spm"`
	TargetSPM      *float64 `json:"target_spm"`
	AboveTargetPct *float64 `json:"above_target_pct"`
}

// PowerReport summarises the power channel: zones plus the normalized-power
// block and the power-duration curve.
type PowerReport struct {
	MeanW            *float64             `json:"mean_w"`
	MaxW             *float64             `json:"max_w"`
	FTPW             *float64             `json:"ftp_w"`
	FTPEstimated     bool                 `json:"ftp_estimated"`
	Zones            []ZoneRow            `json:"zones,omitempty"`
	NormalizedPowerW *float64             `json:"normalized_power_w"`
	IntensityFactor  *float64             `json:"intensity_factor"`
	TSS              *float64             `json:"tss"`
	DurationCurve    []PowerDurationPoint `json:"power_duration_curve,omitempty"`
}

// PowerDurationPoint is the best average power sustained for a duration.
type PowerDurationPoint struct {
	DurationS float64  `json:"duration_s"`
	PowerW    *float64 `json:"power_w"`
}

// RunningDynamics averages the advanced running channels when a device
// recorded them.
type RunningDynamics struct {
	StrideLengthMeanM         *float64 `json:"stride_length_mean_m"`
	VerticalOscillationMeanCM *float64 `json:"vertical_oscillation_mean_cm"`
	VerticalRatioMeanPct      *float64 `json:"vertical_ratio_mean_pct"`
	GroundContactTimeMeanMS   *float64 `json:"ground_contact_time_mean_ms"`
	GCTBalanceMeanPct         *float64 `json:"gct_balance_mean_pct"`
}

// TrainingLoad estimates session load from time in HR zones.
type TrainingLoad struct {
	TRIMP  float64 `json:"trimp"`
	Method string  `json:"method"`
}

// Pacing groups the pacing-quality and drift metrics.
type Pacing struct {
	PaceFirstHalfSPerKM   *float64 `json:"pace_first_half_s_per_km"`
	PaceSecondHalfSPerKM  *float64 `json:"pace_second_half_s_per_km"`
	PaceDeltaSPerKM       *float64 `json:"pace_delta_s_per_km"`
	DriftSPerKMPerKM      *float64 `json:"drift_s_per_km_per_km"`
	CardiacDriftPct       *float64 `json:"cardiac_drift_pct"`
	CardiacDriftSlopePct  *float64 `json:"cardiac_drift_slope_pct"`
	StabilityCV           *float64 `json:"stability_cv"`
	StabilityIQRRatio     *float64 `json:"stability_iqr_ratio"`
	GAPResidualMedianS    *float64 `json:"gap_residual_median_s"`
	PaceThresholdSPerKM   *float64 `json:"pace_threshold_s_per_km"`
}

// GradeBinRow is one 0.5%-wide grade bucket of the pace-vs-grade curve,
// carrying both the robust time-weighted statistics and the legacy
// unweighted ones.
type GradeBinRow struct {
	GradeCenter     float64 `json:"grade_center"`
	PaceMedSPerKM   float64 `json:"pace_med_s_per_km"`
	PaceStdSPerKM   float64 `json:"pace_std_s_per_km"`
	PaceN           int     `json:"pace_n"`
	TimeSBin        float64 `json:"time_s_bin"`
	PaceMeanWSPerKM float64 `json:"pace_mean_w_s_per_km"`
	PaceQ25WSPerKM  float64 `json:"pace_q25_w_s_per_km"`
	PaceQ50WSPerKM  float64 `json:"pace_q50_w_s_per_km"`
	PaceQ75WSPerKM  float64 `json:"pace_q75_w_s_per_km"`
	PaceIQRWSPerKM  float64 `json:"pace_iqr_w_s_per_km"`
	PaceStdWSPerKM  float64 `json:"pace_std_w_s_per_km"`
	PaceNEff        float64 `json:"pace_n_eff"`
	OutlierClipFrac float64 `json:"outlier_clip_frac"`
}

// Climb is one detected climb segment. Indexes refer to rows of the source
// point table.
type Climb struct {
	StartIndex       int      `json:"start_idx"`
	EndIndex         int      `json:"end_idx"`
	DistanceKM       float64  `json:"distance_km"`
	ElevationGainM   float64  `json:"elevation_gain_m"`
	AvgGradePct      *float64 `json:"avg_grade_percent"`
	VAMMPerH         *float64 `json:"vam_m_h"`
	MedianPaceSPerKM *float64 `json:"pace_s_per_km"`
	EndDistanceM     float64  `json:"distance_m_end"`
}

// DistanceEffort is the fastest window covering a target distance.
type DistanceEffort struct {
	DistanceKM float64 `json:"distance_km"`
	TimeS      float64 `json:"time_s"`
	PaceSPerKM float64 `json:"pace_s_per_km"`
}

// DurationEffort is the longest window covering a target duration.
type DurationEffort struct {
	DurationS  float64 `json:"duration_s"`
	DistanceKM float64 `json:"distance_km"`
	TimeS      float64 `json:"time_s"`
	PaceSPerKM float64 `json:"pace_s_per_km"`
}

// RacePrediction is a Riegel extrapolation from the best achieved effort.
type RacePrediction struct {
	TargetDistanceKM float64 `json:"target_distance_km"`
	PredictedTimeS   float64 `json:"predicted_time_s"`
	BaseDistanceKM   float64 `json:"base_distance_km"`
	BaseTimeS        float64 `json:"base_time_s"`
	Exponent         float64 `json:"exponent"`
}

// Split is one fixed-distance bucket of the activity.
type Split struct {
	Index          int      `json:"split_index"`
	DistanceKM     float64  `json:"distance_km"`
	TimeS          *float64 `json:"time_s"`
	PaceSPerKM     *float64 `json:"pace_s_per_km"`
	ElevationGainM float64  `json:"elevation_gain_m"`
	AvgHRBPM       *float64 `json:"avg_hr_bpm"`
	ElevDeltaM     float64  `json:"elev_delta_m"`
}

// DerivedSeries bundles the index-aligned derived columns for charting.
type DerivedSeries struct {
	Grade  []float64 `json:"grade"`
	Moving []bool    `json:"moving"`
	GAP    []float64 `json:"gap"`
}

// opt converts an internal NaN marker into the external nil marker.
func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
