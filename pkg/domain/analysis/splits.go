package analysis

import (
	"math"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// computeSplits cuts the activity into fixed-distance buckets with a final
// partial bucket. Split time is moving time interpolated at the exact
// boundary distances, so a pause inside a split does not inflate its pace.
// Elevation gain sums the boundary-interpolated endpoints together with the
// recorded samples inside the bucket; average HR is the plain mean of the
// samples whose distance falls in the bucket, boundaries included.
func computeSplits(t *telemetry.Table, splitDistM float64) []Split {
	n := t.Len()
	if n == 0 || splitDistM <= 0 {
		return nil
	}

	ax := newDistanceAxis(t)
	distX, movingY := uniqueXY(ax.dist, ax.movingTime)
	if len(distX) == 0 {
		return nil
	}
	total := distX[len(distX)-1]
	if !isFinite(total) || total <= 0 {
		return nil
	}

	boundaries := []float64{0}
	for k := 1; float64(k)*splitDistM <= total; k++ {
		boundaries = append(boundaries, float64(k)*splitDistM)
	}
	if boundaries[len(boundaries)-1] < total {
		boundaries = append(boundaries, total)
	}

	var elevX, elevY []float64
	if ax.elev != nil {
		elevX, elevY = uniqueXY(ax.dist, ax.elev)
	}

	var splits []Split
	for i := 0; i+1 < len(boundaries); i++ {
		startM, endM := boundaries[i], boundaries[i+1]
		if endM <= startM {
			continue
		}
		distKM := (endM - startM) / 1000

		timeS := interp(endM, distX, movingY) - interp(startM, distX, movingY)
		paceS := math.NaN()
		if isFinite(timeS) && timeS > 0 {
			paceS = timeS / distKM
		}

		gain, delta := 0.0, 0.0
		if len(elevX) > 0 {
			e0 := interp(startM, elevX, elevY)
			e1 := interp(endM, elevX, elevY)
			delta = e1 - e0

			elevations := []float64{e0}
			for j := 0; j < n; j++ {
				if ax.dist[j] >= startM && ax.dist[j] <= endM && isFinite(ax.elev[j]) {
					elevations = append(elevations, ax.elev[j])
				}
			}
			elevations = append(elevations, e1)
			for j := 1; j < len(elevations); j++ {
				if d := elevations[j] - elevations[j-1]; d > 0 {
					gain += d
				}
			}
		}

		avgHR := math.NaN()
		if t.HasHeartRate() {
			var hrs []float64
			for j := 0; j < n; j++ {
				if ax.dist[j] >= startM && ax.dist[j] <= endM && isFinite(t.HeartRate[j]) {
					hrs = append(hrs, t.HeartRate[j])
				}
			}
			avgHR = nanMean(hrs)
		}

		splits = append(splits, Split{
			Index:          i + 1,
			DistanceKM:     distKM,
			TimeS:          opt(timeS),
			PaceSPerKM:     opt(paceS),
			ElevationGainM: gain,
			AvgHRBPM:       opt(avgHR),
			ElevDeltaM:     delta,
		})
	}
	return splits
}
