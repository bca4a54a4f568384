package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

const (
	npRollingWindowS  = 30
	resampleFillLimit = 5
)

var powerPeakDurationsS = []int{5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600}

// resample1Hz projects a channel onto a 1-second moving-time grid. Samples
// sharing a second are averaged, short dropouts are forward-filled up to
// resampleFillLimit seconds, and longer holes stay NaN. Needs at least two
// usable samples, otherwise the series is empty.
func resample1Hz(values []float64, t *telemetry.Table, moving []bool) []float64 {
	n := t.Len()
	elapsed := make([]float64, n)
	cum := 0.0
	valid := 0
	for i := 0; i < n; i++ {
		dt := t.DeltaTime[i]
		if !isFinite(dt) || dt <= 0 || !moving[i] {
			dt = 0
		}
		cum += dt
		elapsed[i] = cum
		if dt > 0 && moving[i] && isFinite(values[i]) {
			valid++
		}
	}
	if valid < 2 {
		return nil
	}

	length := int(math.Floor(cum)) + 1
	sums := make([]float64, length)
	counts := make([]int, length)
	for i := 0; i < n; i++ {
		dt := t.DeltaTime[i]
		if !isFinite(dt) || dt <= 0 || !moving[i] || !isFinite(values[i]) {
			continue
		}
		sec := int(math.Floor(elapsed[i]))
		if sec < 0 || sec >= length {
			continue
		}
		sums[sec] += values[i]
		counts[sec]++
	}

	out := make([]float64, length)
	gap := resampleFillLimit + 1
	last := math.NaN()
	for s := 0; s < length; s++ {
		if counts[s] > 0 {
			out[s] = sums[s] / float64(counts[s])
			last = out[s]
			gap = 0
			continue
		}
		gap++
		if gap <= resampleFillLimit && isFinite(last) {
			out[s] = last
		} else {
			out[s] = math.NaN()
		}
	}
	return out
}

// rollingFullWindowMean is the trailing mean requiring a fully defined
// window; positions without window samples are NaN.
func rollingFullWindowMean(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for j := i + 1 - window; j <= i; j++ {
			if !isFinite(series[j]) {
				ok = false
				break
			}
			sum += series[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// normalizedPower is the fourth-root of the mean fourth power of the 30 s
// rolling average, over the 1 Hz series. NaN when the series holds fewer
// defined seconds than the window.
func normalizedPower(series1Hz []float64) float64 {
	defined := 0
	for _, v := range series1Hz {
		if isFinite(v) {
			defined++
		}
	}
	if defined < npRollingWindowS {
		return math.NaN()
	}
	roll := rollingFullWindowMean(series1Hz, npRollingWindowS)
	sum, n := 0.0, 0
	for _, v := range roll {
		if isFinite(v) {
			sum += math.Pow(v, 4)
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	meanFourth := sum / float64(n)
	if !isFinite(meanFourth) || meanFourth <= 0 {
		return math.NaN()
	}
	return math.Pow(meanFourth, 0.25)
}

// powerDurationCurve is the best fully-defined rolling average for each peak
// duration. Durations the series cannot fill report an undefined power.
func powerDurationCurve(series1Hz []float64) []PowerDurationPoint {
	if len(series1Hz) == 0 {
		return nil
	}
	out := make([]PowerDurationPoint, 0, len(powerPeakDurationsS))
	for _, dur := range powerPeakDurationsS {
		roll := rollingFullWindowMean(series1Hz, dur)
		out = append(out, PowerDurationPoint{
			DurationS: float64(dur),
			PowerW:    opt(nanMax(roll)),
		})
	}
	return out
}

// estimateFTP approximates functional threshold power as the 95th percentile
// of recorded power over weighted points.
func estimateFTP(power, weights []float64) float64 {
	var vals []float64
	for i, p := range power {
		if isFinite(p) && isFinite(weights[i]) && weights[i] > 0 {
			vals = append(vals, p)
		}
	}
	return nanPercentile(vals, 95)
}

// computePowerReport assembles the power block: zones against FTP (given or
// estimated), normalized power with intensity factor and TSS, and the peak
// power-duration curve.
func computePowerReport(t *telemetry.Table, weights []float64, moving []bool, movingTimeS, ftpW float64) *PowerReport {
	if !t.HasPower() {
		return nil
	}
	power := t.Power

	ftpEstimated := false
	if !(ftpW > 0) {
		ftpW = estimateFTP(power, weights)
		ftpEstimated = true
	}

	report := &PowerReport{
		MeanW:        opt(weightedMean(power, weights)),
		MaxW:         opt(nanMax(power)),
		FTPW:         opt(ftpW),
		FTPEstimated: ftpEstimated,
		Zones:        buildZoneTable(scaledRatios(power, ftpW), weights, powerZones, " FTP"),
	}

	series1Hz := resample1Hz(power, t, moving)
	np := normalizedPower(series1Hz)
	report.NormalizedPowerW = opt(np)
	if isFinite(np) && ftpW > 0 {
		ifr := np / ftpW
		report.IntensityFactor = opt(ifr)
		if movingTimeS > 0 {
			report.TSS = opt(movingTimeS * np * ifr / (ftpW * 3600) * 100)
		}
	}
	report.DurationCurve = powerDurationCurve(series1Hz)
	return report
}
