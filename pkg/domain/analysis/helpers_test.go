package analysis

import (
	"math"
	"testing"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// syntheticTable builds a 1 Hz table from per-second speeds (m/s). A zero
// speed models a stationary sample: no distance progress, speed and pace
// undefined after range filtering.
func syntheticTable(speeds []float64) *telemetry.Table {
	n := len(speeds)
	t := &telemetry.Table{
		Time:          make([]float64, n),
		DeltaTime:     make([]float64, n),
		Distance:      make([]float64, n),
		DeltaDistance: make([]float64, n),
		Speed:         make([]float64, n),
		Pace:          make([]float64, n),
	}
	dist := 0.0
	for i, v := range speeds {
		t.Time[i] = float64(i)
		if i == 0 {
			t.DeltaTime[i] = math.NaN()
		} else {
			t.DeltaTime[i] = 1
			dist += v
		}
		t.Distance[i] = dist
		if i == 0 {
			t.DeltaDistance[i] = math.NaN()
		} else {
			t.DeltaDistance[i] = v
		}
		filtered := telemetry.ClampSpeed(v)
		t.Speed[i] = filtered
		t.Pace[i] = telemetry.PaceFromSpeed(filtered)
	}
	return t
}

// constantSpeeds returns n samples at v m/s.
func constantSpeeds(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func approxEqual(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tol %v)", what, got, want, tol)
	}
}

func requireOpt(t *testing.T, v *float64, what string) float64 {
	t.Helper()
	if v == nil {
		t.Fatalf("%s is nil", what)
	}
	return *v
}
