package analysis

import (
	"math"
	"sort"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// computeClimbs segments the activity into climbs. Detection runs on a
// regular distance grid so GPS sampling density cannot bias it: elevation and
// moving time are interpolated onto the grid, elevation is smoothed over a
// distance window, and the grade at each cell is a lagged difference. A state
// machine then applies hysteresis: a climb opens after a sustained steep
// stretch, survives short flats and bridgeable gaps, and closes on a net
// descent or a gap that ran too long. Indexes in the result refer back to the
// original table rows.
func computeClimbs(t *telemetry.Table, grade []float64, cp ClimbParams) []Climb {
	n := t.Len()
	if n == 0 || !t.HasElevation() {
		return nil
	}

	ax := newDistanceAxis(t)

	distX, elevY := uniqueXY(ax.dist, ax.elev)
	if len(distX) < 2 {
		return nil
	}
	_, timeY := uniqueXY(ax.dist, ax.movingTime)

	d0, d1 := distX[0], distX[len(distX)-1]
	if !isFinite(d0) || !isFinite(d1) || d1 <= d0 {
		return nil
	}

	step := cp.GridStep
	var grid []float64
	for d := d0; d <= d1+step/2; d += step {
		grid = append(grid, d)
	}
	if len(grid) < 2 {
		return nil
	}

	elevGrid := make([]float64, len(grid))
	timeGrid := make([]float64, len(grid))
	for i, d := range grid {
		elevGrid[i] = interp(d, distX, elevY)
		timeGrid[i] = interp(d, distX, timeY)
	}

	smoothPts := int(math.Round(cp.SmoothWindow / step))
	if smoothPts < 1 {
		smoothPts = 1
	}
	elevSmooth := rollingMean(elevGrid, smoothPts)

	lagPts := int(math.Round(cp.LagDistance / step))
	if lagPts < 1 {
		lagPts = 1
	}
	gradeGrid := make([]float64, len(grid))
	for i := range gradeGrid {
		gradeGrid[i] = math.NaN()
		if i >= lagPts {
			gradeGrid[i] = (elevSmooth[i] - elevSmooth[i-lagPts]) / cp.LagDistance * 100
		}
	}

	// Fall back to the point grade where the lagged difference is undefined.
	gradeX, gradeY := uniqueXY(ax.dist, grade)
	if len(gradeX) >= 2 {
		for i, g := range gradeGrid {
			if !isFinite(g) {
				gradeGrid[i] = interp(grid[i], gradeX, gradeY)
			}
		}
	}

	type span struct{ start, end int }
	var segments []span
	inSeg := false
	segStart := 0
	startRun := 0.0
	gapM, gapT := 0.0, 0.0
	downhillM := 0.0
	lastOK := 0
	downhillStart := 0

	timeDiff := func(i int) float64 {
		if i == 0 {
			return 0
		}
		return timeGrid[i] - timeGrid[i-1]
	}
	closeSeg := func(end int) {
		if end > segStart {
			segments = append(segments, span{segStart, end})
		}
		inSeg = false
		startRun = 0
		gapM, gapT = 0, 0
		downhillM = 0
	}

	for i := range grid {
		g := gradeGrid[i]
		if !isFinite(g) {
			if inSeg {
				gapM += step
				gapT += timeDiff(i)
				if gapM > cp.GapMaxDistance || gapT > cp.GapMaxTime {
					closeSeg(lastOK)
				}
				continue
			}
			startRun = 0
			continue
		}

		if !inSeg {
			if g >= cp.StartGrade {
				startRun += step
				if startRun >= cp.ConfirmDistance {
					inSeg = true
					// The lagged grade confirms late; pull the start back to
					// cover the climb onset.
					rawStart := i - int(math.Round(startRun/step)) + 1
					if rawStart < 0 {
						rawStart = 0
					}
					segStart = rawStart - lagPts
					if segStart < 0 {
						segStart = 0
					}
					lastOK = i
					gapM, gapT = 0, 0
					downhillM = 0
					downhillStart = i
				}
			} else {
				startRun = 0
			}
			continue
		}

		if g <= cp.StopDescent {
			if downhillM == 0 {
				downhillStart = i
			}
			downhillM += step
		} else {
			downhillM = 0
		}
		if downhillM >= cp.StopDescentDist {
			closeSeg(downhillStart - 1)
			continue
		}

		if g >= cp.ContinueGrade {
			gapM, gapT = 0, 0
			lastOK = i
			continue
		}
		if g >= cp.GapGrade {
			gapM += step
			gapT += timeDiff(i)
			lastOK = i
			continue
		}
		gapM += step
		gapT += timeDiff(i)
		if gapM > cp.GapMaxDistance || gapT > cp.GapMaxTime {
			closeSeg(lastOK)
		}
	}
	if inSeg {
		closeSeg(lastOK)
	}
	if len(segments) == 0 {
		return nil
	}

	var climbs []Climb
	for _, seg := range segments {
		segStartM := grid[seg.start]
		segEndM := grid[seg.end]
		if segEndM <= segStartM {
			continue
		}

		startIdx := searchLeft(ax.dist, segStartM)
		endIdx := searchRight(ax.dist, segEndM) - 1
		startIdx = clampIdx(startIdx, n)
		endIdx = clampIdx(endIdx, n)
		if endIdx <= startIdx {
			continue
		}

		segDist := ax.dist[endIdx] - ax.dist[startIdx]
		if !isFinite(segDist) || segDist < cp.MinDistance {
			continue
		}
		segTime := ax.movingTime[endIdx] - ax.movingTime[startIdx]
		if !isFinite(segTime) || segTime < cp.MinDuration {
			continue
		}

		gain := 0.0
		for i := seg.start + 1; i <= seg.end; i++ {
			if d := elevSmooth[i] - elevSmooth[i-1]; isFinite(d) && d > 0 {
				gain += d
			}
		}
		if !isFinite(gain) || gain < cp.MinGain {
			continue
		}

		avgGrade := math.NaN()
		if segDist > 0 {
			avgGrade = gain / segDist * 100
		}
		vam := math.NaN()
		if segTime > 0 {
			vam = gain / segTime * 3600
		}

		var segPace []float64
		for i := startIdx; i <= endIdx; i++ {
			if p := t.Pace[i]; isFinite(p) && p > 0 {
				segPace = append(segPace, p)
			}
		}
		paceMed := nanMedian(segPace)

		climbs = append(climbs, Climb{
			StartIndex:       startIdx,
			EndIndex:         endIdx,
			DistanceKM:       segDist / 1000,
			ElevationGainM:   gain,
			AvgGradePct:      opt(avgGrade),
			VAMMPerH:         opt(vam),
			MedianPaceSPerKM: opt(paceMed),
			EndDistanceM:     ax.dist[endIdx],
		})
	}

	sort.SliceStable(climbs, func(i, j int) bool {
		if climbs[i].ElevationGainM != climbs[j].ElevationGainM {
			return climbs[i].ElevationGainM > climbs[j].ElevationGainM
		}
		return climbs[i].StartIndex < climbs[j].StartIndex
	})
	return climbs
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
