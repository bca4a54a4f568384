package analysis

// Params tunes the analysis pipeline. Zero values mean "use the default";
// DefaultParams fills every field, so callers normally start from it and
// override what they need.
type Params struct {
	// Moving/pause detection.
	PauseSpeedThreshold float64 // m/s, speeds below are pause candidates
	MinPauseDuration    float64 // s, accumulated low-speed time confirming a pause

	// Grade.
	GradeSmoothWindow int     // points, centered elevation smoothing
	MinGradeDistance  float64 // m, minimum delta-distance to trust a slope

	// Climb segmentation.
	Climb ClimbParams

	// Best efforts.
	DistanceTargetsKM []float64 // km
	DurationTargetsS  []float64 // s
	PredictionKM      []float64 // km, Riegel prediction targets

	// Splits.
	SplitDistanceM float64

	// Zone inputs. Zero/absent values are estimated from the activity.
	HRMax         float64
	HRRest        float64
	UseHRR        bool    // use heart-rate reserve instead of %max
	PaceThreshold float64 // s/km
	FTP           float64 // watts
	CadenceTarget float64 // steps/min

	// ElapsedTimeWeights weights statistics by elapsed time instead of the
	// default moving time.
	ElapsedTimeWeights bool
}

// ClimbParams tunes the climb state machine. Distances in metres, grades in
// percent, durations in seconds.
type ClimbParams struct {
	StartGrade      float64 // grade confirming a climb start
	ContinueGrade   float64 // grade keeping a climb alive without question
	GapGrade        float64 // grade above which a flat stretch still counts as gap
	StopDescent     float64 // grade at or below which a descent run accumulates
	ConfirmDistance float64 // distance of sustained StartGrade before entering a climb
	GapMaxDistance  float64 // longest tolerated flat gap
	GapMaxTime      float64 // longest tolerated flat gap, moving time
	StopDescentDist float64 // sustained descent distance ending a climb
	MinDistance     float64 // reject segments shorter than this
	MinDuration     float64 // reject segments faster than this
	MinGain         float64 // reject segments flatter than this
	GridStep        float64 // resampling grid step
	SmoothWindow    float64 // elevation smoothing window on the grid
	LagDistance     float64 // lagged-difference window for grid grade
}

// DefaultParams returns the standard tuning used when the caller does not
// override anything.
func DefaultParams() Params {
	return Params{
		PauseSpeedThreshold: 0.5,
		MinPauseDuration:    5,
		GradeSmoothWindow:   5,
		MinGradeDistance:    1.0,
		Climb: ClimbParams{
			StartGrade:      3.0,
			ContinueGrade:   1.0,
			GapGrade:        0.2,
			StopDescent:     -1.0,
			ConfirmDistance: 20,
			GapMaxDistance:  120,
			GapMaxTime:      30,
			StopDescentDist: 30,
			MinDistance:     150,
			MinDuration:     45,
			MinGain:         15,
			GridStep:        5,
			SmoothWindow:    25,
			LagDistance:     50,
		},
		DistanceTargetsKM: []float64{1, 5, 10, 21.097, 42.195},
		DurationTargetsS:  []float64{60, 300, 600, 1200, 1800, 3600},
		PredictionKM:      []float64{5, 10, 21.097, 42.195},
		SplitDistanceM:    1000,
		CadenceTarget:     170,
	}
}

// withDefaults fills any zero-valued tuning field from DefaultParams.
// Athlete-specific inputs (HRMax, FTP, PaceThreshold, ...) are left alone:
// zero there means "estimate from the activity".
func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.PauseSpeedThreshold <= 0 {
		p.PauseSpeedThreshold = def.PauseSpeedThreshold
	}
	if p.MinPauseDuration <= 0 {
		p.MinPauseDuration = def.MinPauseDuration
	}
	if p.GradeSmoothWindow <= 0 {
		p.GradeSmoothWindow = def.GradeSmoothWindow
	}
	if p.MinGradeDistance <= 0 {
		p.MinGradeDistance = def.MinGradeDistance
	}
	if p.Climb == (ClimbParams{}) {
		p.Climb = def.Climb
	}
	if len(p.DistanceTargetsKM) == 0 {
		p.DistanceTargetsKM = def.DistanceTargetsKM
	}
	if len(p.DurationTargetsS) == 0 {
		p.DurationTargetsS = def.DurationTargetsS
	}
	if len(p.PredictionKM) == 0 {
		p.PredictionKM = def.PredictionKM
	}
	if p.SplitDistanceM <= 0 {
		p.SplitDistanceM = def.SplitDistanceM
	}
	if p.CadenceTarget <= 0 {
		p.CadenceTarget = def.CadenceTarget
	}
	return p
}
