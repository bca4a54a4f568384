package analysis

import (
	"math"
	"testing"
)

func TestComputeMoving_AllMoving(t *testing.T) {
	tbl := syntheticTable(constantSpeeds(30, 3))
	moving := computeMoving(tbl, 0.5, 5)
	for i, m := range moving {
		if !m {
			t.Fatalf("point %d should be moving", i)
		}
	}
}

func TestComputeMoving_LongStopBecomesPause(t *testing.T) {
	speeds := append(constantSpeeds(10, 3), constantSpeeds(8, 0)...)
	speeds = append(speeds, constantSpeeds(10, 3)...)
	tbl := syntheticTable(speeds)

	moving := computeMoving(tbl, 0.5, 5)
	movingS, pauseS, longest := movingTimes(tbl, moving)

	if moving[14] {
		t.Error("middle of an 8 s stop should be paused")
	}
	// The first sample after the stop still carries stationary time.
	if moving[18] {
		t.Error("sample closing the stop belongs to the pause")
	}
	if pauseS < 8 {
		t.Errorf("pauseS = %v, want >= 8", pauseS)
	}
	approxEqual(t, longest, pauseS, 1e-9, "single pause is the longest")
	approxEqual(t, movingS+pauseS, tbl.TotalTime(), 1e-9, "times partition total")
}

func TestComputeMoving_ShortStopIgnored(t *testing.T) {
	speeds := append(constantSpeeds(10, 3), constantSpeeds(3, 0)...)
	speeds = append(speeds, constantSpeeds(10, 3)...)
	tbl := syntheticTable(speeds)

	moving := computeMoving(tbl, 0.5, 5)
	for i, m := range moving {
		if !m {
			t.Fatalf("3 s stop is under the pause minimum, point %d should stay moving", i)
		}
	}
}

func TestComputeMoving_MedianFilterBridgesDropout(t *testing.T) {
	speeds := constantSpeeds(20, 3)
	speeds[10] = 0 // single-sample GPS dropout
	tbl := syntheticTable(speeds)

	moving := computeMoving(tbl, 0.5, 5)
	if !moving[10] {
		t.Error("a single dropout sample should not create a pause")
	}
}

func TestEnginePace(t *testing.T) {
	tbl := syntheticTable(constantSpeeds(10, 2.5))
	moving := computeMoving(tbl, 0.5, 5)
	pace := enginePace(tbl, moving)

	if !math.IsNaN(pace[0]) {
		t.Error("first point has no delta, pace should be NaN")
	}
	for i := 1; i < len(pace); i++ {
		approxEqual(t, pace[i], 400, 1e-9, "pace at 2.5 m/s")
	}
}

func TestTimeWeights(t *testing.T) {
	speeds := append(constantSpeeds(10, 3), constantSpeeds(8, 0)...)
	tbl := syntheticTable(speeds)
	moving := computeMoving(tbl, 0.5, 5)

	w := timeWeights(tbl, moving, false)
	if w[0] != 0 {
		t.Error("NaN delta time should weight 0")
	}
	if w[5] != 1 {
		t.Error("moving sample should carry its recorded second")
	}
	if w[14] != 0 {
		t.Error("paused sample should weight 0 under moving-time weighting")
	}

	we := timeWeights(tbl, moving, true)
	if we[14] != 1 {
		t.Error("elapsed-time weighting keeps paused seconds")
	}
}
