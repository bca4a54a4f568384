package analysis

import (
	"math"
	"testing"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

func powerTable(n int, watts float64) (*telemetry.Table, []bool, []float64) {
	tbl := syntheticTable(constantSpeeds(n, 3))
	tbl.Power = make([]float64, n)
	for i := range tbl.Power {
		tbl.Power[i] = watts
	}
	moving := flatMoving(n)
	weights := timeWeights(tbl, moving, false)
	return tbl, moving, weights
}

func TestNormalizedPower_ConstantPower(t *testing.T) {
	tbl, moving, _ := powerTable(120, 250)
	series := resample1Hz(tbl.Power, tbl, moving)
	approxEqual(t, normalizedPower(series), 250, 1e-6, "NP of constant power")
}

func TestNormalizedPower_TooShort(t *testing.T) {
	tbl, moving, _ := powerTable(20, 250)
	series := resample1Hz(tbl.Power, tbl, moving)
	if !math.IsNaN(normalizedPower(series)) {
		t.Error("under 30 defined seconds NP must be undefined")
	}
}

func TestNormalizedPower_WeightsSurges(t *testing.T) {
	// Half at 100 W, half at 400 W: NP must exceed the plain 250 W mean.
	tbl, moving, _ := powerTable(600, 100)
	for i := 300; i < 600; i++ {
		tbl.Power[i] = 400
	}
	series := resample1Hz(tbl.Power, tbl, moving)
	np := normalizedPower(series)
	if !(np > 250) {
		t.Errorf("NP = %v, want above the arithmetic mean for surging power", np)
	}
}

func TestPowerDurationCurve(t *testing.T) {
	tbl, moving, _ := powerTable(130, 250)
	series := resample1Hz(tbl.Power, tbl, moving)
	curve := powerDurationCurve(series)
	if len(curve) == 0 {
		t.Fatal("expected curve points")
	}
	for _, pt := range curve {
		if pt.DurationS <= 120 {
			approxEqual(t, requireOpt(t, pt.PowerW, "peak power"), 250, 1e-6, "peak at constant power")
		} else if pt.PowerW != nil {
			t.Errorf("duration %v s longer than the activity should be undefined", pt.DurationS)
		}
	}
}

func TestEstimateFTP(t *testing.T) {
	power := make([]float64, 100)
	weights := make([]float64, 100)
	for i := range power {
		power[i] = float64(i + 1) // 1..100 W
		weights[i] = 1
	}
	got := estimateFTP(power, weights)
	if got < 95 || got > 100 {
		t.Errorf("FTP estimate = %v, want the 95th percentile region", got)
	}
}

func TestComputePowerReport(t *testing.T) {
	tbl, moving, weights := powerTable(600, 250)
	report := computePowerReport(tbl, weights, moving, 599, 250)
	if report == nil {
		t.Fatal("power channel present, report should exist")
	}
	if report.FTPEstimated {
		t.Error("explicit FTP should not be flagged as estimated")
	}
	approxEqual(t, requireOpt(t, report.MeanW, "mean"), 250, 1e-6, "mean power")
	approxEqual(t, requireOpt(t, report.NormalizedPowerW, "NP"), 250, 1e-6, "NP")
	approxEqual(t, requireOpt(t, report.IntensityFactor, "IF"), 1, 1e-6, "IF at FTP")
	// TSS at exactly FTP: one hour would be 100; 599 s is proportional.
	approxEqual(t, requireOpt(t, report.TSS, "TSS"), 599.0/3600*100, 0.1, "TSS")
	if len(report.Zones) != 7 {
		t.Errorf("expected 7 power zones, got %d", len(report.Zones))
	}
}

func TestComputePowerReport_EstimatesFTP(t *testing.T) {
	tbl, moving, weights := powerTable(120, 300)
	report := computePowerReport(tbl, weights, moving, 119, 0)
	if report == nil {
		t.Fatal("report should exist")
	}
	if !report.FTPEstimated {
		t.Error("missing FTP should be estimated and flagged")
	}
	approxEqual(t, requireOpt(t, report.FTPW, "FTP"), 300, 1e-6, "estimated FTP of constant power")
}

func TestComputePowerReport_NoChannel(t *testing.T) {
	tbl := syntheticTable(constantSpeeds(60, 3))
	moving := flatMoving(60)
	if report := computePowerReport(tbl, timeWeights(tbl, moving, false), moving, 59, 0); report != nil {
		t.Error("no power channel, no report")
	}
}
