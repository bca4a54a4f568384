package analysis

import (
	"fmt"
	"math"
)

// zoneDef is one intensity band expressed as a ratio against the athlete
// reference (HR max, threshold pace, FTP). High is +Inf for the open top.
type zoneDef struct {
	name string
	low  float64
	high float64
}

var hrZones = []zoneDef{
	{"Z1", 0.50, 0.60},
	{"Z2", 0.60, 0.70},
	{"Z3", 0.70, 0.80},
	{"Z4", 0.80, 0.90},
	{"Z5", 0.90, math.Inf(1)},
}

// Pace zones run slow to fast: the ratio is pace over threshold pace, so a
// bigger ratio means an easier effort.
var paceZones = []zoneDef{
	{"Z1", 1.29, math.Inf(1)},
	{"Z2", 1.14, 1.29},
	{"Z3", 1.06, 1.14},
	{"Z4", 0.99, 1.06},
	{"Z5", 0.00, 0.99},
}

var powerZones = []zoneDef{
	{"Z1", 0.00, 0.55},
	{"Z2", 0.55, 0.75},
	{"Z3", 0.75, 0.90},
	{"Z4", 0.90, 1.05},
	{"Z5", 1.05, 1.20},
	{"Z6", 1.20, 1.50},
	{"Z7", 1.50, math.Inf(1)},
}

func pctLabel(low, high float64, suffix string) string {
	if math.IsInf(high, 1) {
		return fmt.Sprintf(">= %d%%%s", int(low*100), suffix)
	}
	return fmt.Sprintf("%d-%d%%%s", int(low*100), int(high*100), suffix)
}

// buildZoneTable distributes the per-point time weights across intensity
// bands by membership of the ratio in [low, high). Points with an undefined
// ratio or no weight carry no time; if nothing qualifies the table is empty
// rather than a row of zeros.
func buildZoneTable(ratios, weights []float64, zones []zoneDef, labelSuffix string) []ZoneRow {
	total := 0.0
	for i, r := range ratios {
		w := weights[i]
		if isFinite(r) && isFinite(w) && w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return nil
	}
	rows := make([]ZoneRow, 0, len(zones))
	for _, z := range zones {
		timeS := 0.0
		for i, r := range ratios {
			w := weights[i]
			if !isFinite(r) || !isFinite(w) || w <= 0 {
				continue
			}
			if r >= z.low && (math.IsInf(z.high, 1) || r < z.high) {
				timeS += w
			}
		}
		var high *float64
		if !math.IsInf(z.high, 1) {
			h := z.high
			high = &h
		}
		rows = append(rows, ZoneRow{
			Zone:    z.name,
			Range:   pctLabel(z.low, z.high, labelSuffix),
			Low:     z.low,
			High:    high,
			TimeS:   timeS,
			TimePct: timeS / total * 100,
		})
	}
	return rows
}

// edwardsTRIMP weights time in each HR zone by its index, in minutes.
func edwardsTRIMP(zones []ZoneRow) float64 {
	if len(zones) == 0 {
		return math.NaN()
	}
	zoneWeights := map[string]float64{"Z1": 1, "Z2": 2, "Z3": 3, "Z4": 4, "Z5": 5}
	sum := 0.0
	any := false
	for _, z := range zones {
		w, ok := zoneWeights[z.Zone]
		if !ok || !isFinite(z.TimeS) {
			continue
		}
		sum += z.TimeS / 60 * w
		any = true
	}
	if !any {
		return math.NaN()
	}
	return sum
}

// hrRatios maps heart rate to fractional intensity, either %max or heart-rate
// reserve. Negative intensities become undefined.
func hrRatios(hr []float64, hrMax, hrRest float64, useHRR bool) []float64 {
	out := make([]float64, len(hr))
	for i, v := range hr {
		out[i] = math.NaN()
		if !isFinite(v) || hrMax <= 0 {
			continue
		}
		var r float64
		if useHRR && hrRest > 0 && hrRest < hrMax {
			r = (v - hrRest) / (hrMax - hrRest)
		} else {
			r = v / hrMax
		}
		if r < 0 {
			continue
		}
		out[i] = r
	}
	return out
}

func scaledRatios(values []float64, reference float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) || reference <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = v / reference
	}
	return out
}
