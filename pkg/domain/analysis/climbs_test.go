package analysis

import (
	"testing"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// hillTable builds a run that is flat, then climbs at the given grade for
// climbLen samples, then is flat again, at constant speed.
func hillTable(flatLen, climbLen int, speed, gradePct float64) (*telemetry.Table, []float64) {
	n := flatLen + climbLen + flatLen
	tbl := syntheticTable(constantSpeeds(n, speed))
	tbl.Elevation = make([]float64, n)
	elev := 0.0
	for i := 0; i < n; i++ {
		if i > flatLen && i <= flatLen+climbLen {
			elev += speed * gradePct / 100
		}
		tbl.Elevation[i] = elev
	}
	return tbl, computeGrade(tbl, 5, 1.0)
}

func TestComputeClimbs_DetectsSustainedClimb(t *testing.T) {
	// 300 s flat, 300 s at 8% and 3 m/s (900 m, 72 m gain), 300 s flat.
	tbl, grade := hillTable(300, 300, 3, 8)

	climbs := computeClimbs(tbl, grade, DefaultParams().Climb)
	if len(climbs) != 1 {
		t.Fatalf("expected one climb, got %d", len(climbs))
	}
	c := climbs[0]
	if c.DistanceKM < 0.7 || c.DistanceKM > 1.2 {
		t.Errorf("climb distance = %v km, want ~0.9", c.DistanceKM)
	}
	if c.ElevationGainM < 55 || c.ElevationGainM > 80 {
		t.Errorf("climb gain = %v m, want ~72", c.ElevationGainM)
	}
	avgGrade := requireOpt(t, c.AvgGradePct, "avg grade")
	if avgGrade < 6 || avgGrade > 10 {
		t.Errorf("avg grade = %v%%, want ~8", avgGrade)
	}
	if c.StartIndex >= c.EndIndex {
		t.Error("climb indexes must be ordered")
	}
	pace := requireOpt(t, c.MedianPaceSPerKM, "median pace")
	approxEqual(t, pace, 1000.0/3, 1, "pace on climb")
}

func TestComputeClimbs_IgnoresShortBump(t *testing.T) {
	// 30 s at 8% gains ~7 m over 90 m, under every acceptance threshold.
	tbl, grade := hillTable(300, 30, 3, 8)
	if climbs := computeClimbs(tbl, grade, DefaultParams().Climb); len(climbs) != 0 {
		t.Fatalf("short bump should not count as a climb, got %d", len(climbs))
	}
}

func TestComputeClimbs_BridgesShortFlat(t *testing.T) {
	// Two 250 s climb halves separated by a 20 s flat: the gap is within the
	// bridging budget, so one climb spans both.
	speed := 3.0
	n := 200 + 250 + 20 + 250 + 200
	tbl := syntheticTable(constantSpeeds(n, speed))
	tbl.Elevation = make([]float64, n)
	elev := 0.0
	for i := 0; i < n; i++ {
		inFirst := i > 200 && i <= 450
		inSecond := i > 470 && i <= 720
		if inFirst || inSecond {
			elev += speed * 0.08
		}
		tbl.Elevation[i] = elev
	}
	grade := computeGrade(tbl, 5, 1.0)

	climbs := computeClimbs(tbl, grade, DefaultParams().Climb)
	if len(climbs) != 1 {
		t.Fatalf("expected the flat to be bridged into one climb, got %d", len(climbs))
	}
	if gain := climbs[0].ElevationGainM; gain < 90 {
		t.Errorf("bridged climb gain = %v m, want ~120", gain)
	}
}

func TestComputeClimbs_DescentSplitsClimbs(t *testing.T) {
	// Two 300 s climbs at 8% separated by 100 s at -5% (300 m of descent):
	// the sustained descent must close the first climb so two segments come
	// out instead of one spanning the valley.
	speed := 3.0
	n := 200 + 300 + 100 + 300 + 200
	tbl := syntheticTable(constantSpeeds(n, speed))
	tbl.Elevation = make([]float64, n)
	elev := 0.0
	for i := 0; i < n; i++ {
		switch {
		case i > 200 && i <= 500:
			elev += speed * 0.08
		case i > 500 && i <= 600:
			elev -= speed * 0.05
		case i > 600 && i <= 900:
			elev += speed * 0.08
		}
		tbl.Elevation[i] = elev
	}
	grade := computeGrade(tbl, 5, 1.0)

	climbs := computeClimbs(tbl, grade, DefaultParams().Climb)
	if len(climbs) != 2 {
		t.Fatalf("expected the descent to split two climbs, got %d", len(climbs))
	}
	for _, c := range climbs {
		if c.ElevationGainM < 55 || c.ElevationGainM > 80 {
			t.Errorf("climb gain = %v m, want ~72", c.ElevationGainM)
		}
	}
	first, second := climbs[0], climbs[1]
	if first.StartIndex > second.StartIndex {
		first, second = second, first
	}
	if first.EndIndex >= second.StartIndex {
		t.Errorf("climb segments overlap: [%d,%d] and [%d,%d]",
			first.StartIndex, first.EndIndex, second.StartIndex, second.EndIndex)
	}
	if first.EndIndex > 600 {
		t.Errorf("first climb ends at index %d, should close before the descent bottom", first.EndIndex)
	}
}

func TestComputeClimbs_NoElevation(t *testing.T) {
	tbl := syntheticTable(constantSpeeds(600, 3))
	grade := computeGrade(tbl, 5, 1.0)
	if climbs := computeClimbs(tbl, grade, DefaultParams().Climb); climbs != nil {
		t.Error("no elevation channel, no climbs")
	}
}

func TestComputeClimbs_OrderedByGain(t *testing.T) {
	// A small climb followed by a bigger one: output leads with the bigger.
	speed := 3.0
	n := 100 + 200 + 300 + 400 + 100
	tbl := syntheticTable(constantSpeeds(n, speed))
	tbl.Elevation = make([]float64, n)
	elev := 0.0
	for i := 0; i < n; i++ {
		small := i > 100 && i <= 300
		big := i > 600 && i <= 1000
		switch {
		case small:
			elev += speed * 0.05
		case big:
			elev += speed * 0.08
		}
		tbl.Elevation[i] = elev
	}
	grade := computeGrade(tbl, 5, 1.0)

	climbs := computeClimbs(tbl, grade, DefaultParams().Climb)
	if len(climbs) != 2 {
		t.Fatalf("expected two climbs, got %d", len(climbs))
	}
	if climbs[0].ElevationGainM <= climbs[1].ElevationGainM {
		t.Error("climbs should be ordered largest gain first")
	}
	if climbs[0].StartIndex <= climbs[1].StartIndex {
		t.Error("the bigger climb starts later in this layout and should still lead")
	}
}
