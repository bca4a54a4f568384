package analysis

import (
	"math"
	"testing"
)

func TestWeightedQuantile(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	weights := []float64{1, 1, 1, 1}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"min", 0, 10},
		{"median", 0.5, 20},
		{"q75", 0.75, 30},
		{"max", 1, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := weightedQuantile(values, weights, tt.p); got != tt.want {
				t.Errorf("weightedQuantile(p=%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestWeightedQuantile_HeavyWeightDominates(t *testing.T) {
	values := []float64{100, 500}
	weights := []float64{9, 1}
	if got := weightedQuantile(values, weights, 0.5); got != 100 {
		t.Errorf("median with dominant weight = %v, want 100", got)
	}
}

func TestWeightedQuantile_SkipsInvalid(t *testing.T) {
	values := []float64{math.NaN(), 10, 20}
	weights := []float64{5, 0, 3}
	if got := weightedQuantile(values, weights, 0.5); got != 20 {
		t.Errorf("got %v, want 20 (NaN value and zero weight skipped)", got)
	}
	if !math.IsNaN(weightedQuantile(nil, nil, 0.5)) {
		t.Error("empty population should give NaN")
	}
}

func TestWeightedMean(t *testing.T) {
	got := weightedMean([]float64{10, 20, math.NaN()}, []float64{1, 3, 100})
	approxEqual(t, got, 17.5, 1e-12, "weightedMean")

	if !math.IsNaN(weightedMean([]float64{1}, []float64{0})) {
		t.Error("no positive weight should give NaN")
	}
}

func TestEffectiveSampleSize(t *testing.T) {
	if got := effectiveSampleSize([]float64{1, 1, 1, 1}); got != 4 {
		t.Errorf("equal weights ESS = %v, want 4", got)
	}
	got := effectiveSampleSize([]float64{100, 1})
	if got >= 2 || got <= 1 {
		t.Errorf("skewed weights ESS = %v, want in (1, 2)", got)
	}
	if effectiveSampleSize(nil) != 0 {
		t.Error("empty weights ESS should be 0")
	}
}

func TestNanPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, math.NaN()}
	approxEqual(t, nanPercentile(vals, 50), 2.5, 1e-12, "median")
	approxEqual(t, nanPercentile(vals, 0), 1, 1e-12, "p0")
	approxEqual(t, nanPercentile(vals, 100), 4, 1e-12, "p100")
	approxEqual(t, nanPercentile(vals, 25), 1.75, 1e-12, "p25 linear interpolation")
}

func TestLinearSlope(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7}
	approxEqual(t, linearSlope(xs, ys), 2, 1e-12, "slope")

	if !math.IsNaN(linearSlope([]float64{1}, []float64{1})) {
		t.Error("single point should give NaN")
	}
	if !math.IsNaN(linearSlope([]float64{2, 2}, []float64{1, 5})) {
		t.Error("degenerate x spread should give NaN")
	}
}

func TestRollingMean(t *testing.T) {
	got := rollingMean([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{1.5, 2, 3, 4, 4.5}
	for i := range want {
		approxEqual(t, got[i], want[i], 1e-12, "rollingMean")
	}
}

func TestRollingMean_SkipsNaN(t *testing.T) {
	got := rollingMean([]float64{1, math.NaN(), 3}, 3)
	approxEqual(t, got[1], 2, 1e-12, "center over NaN")
}

func TestRollingMedian(t *testing.T) {
	got := rollingMedian([]float64{1, 100, 1, 1, 1}, 3)
	if got[1] != 1 {
		t.Errorf("median filter should suppress the spike, got %v", got[1])
	}
}

func TestSampleStd(t *testing.T) {
	approxEqual(t, sampleStd([]float64{2, 4}), math.Sqrt2, 1e-12, "sampleStd")
	if sampleStd([]float64{5}) != 0 {
		t.Error("single value sample std should be 0")
	}
}
