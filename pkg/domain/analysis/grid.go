package analysis

import (
	"math"
	"sort"

	"github.com/coursescope/server/pkg/domain/telemetry"
)

// uniqueXY reduces (x, y) pairs to one y per strictly increasing x, keeping
// the last pair seen at each x and dropping pairs where either side is NaN.
// The result is a valid interpolation support even when the device emitted
// repeated distances while paused.
func uniqueXY(xs, ys []float64) (outX, outY []float64) {
	type pair struct{ x, y float64 }
	pairs := make([]pair, 0, len(xs))
	for i, x := range xs {
		y := ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		pairs = append(pairs, pair{x, y})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })
	for _, p := range pairs {
		if n := len(outX); n > 0 && outX[n-1] == p.x {
			outY[n-1] = p.y
			continue
		}
		outX = append(outX, p.x)
		outY = append(outY, p.y)
	}
	return outX, outY
}

// interp evaluates the piecewise-linear function through (xs, ys) at x,
// clamping outside the support. xs must be strictly increasing.
func interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	hi := sort.SearchFloat64s(xs, x)
	lo := hi - 1
	if xs[hi] == x {
		return ys[hi]
	}
	frac := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + frac*(ys[hi]-ys[lo])
}

// distanceAxis is the shared distance-parameterized view of a table that
// climbs and splits interpolate over: non-decreasing distance, cumulative
// moving time (pauses frozen), and gap-filled elevation.
type distanceAxis struct {
	dist       []float64 // cummax of Distance, aligned to table rows
	movingTime []float64 // cumulative seconds where the point advanced
	elev       []float64 // ffill+bfill elevation, nil without the channel
}

func newDistanceAxis(t *telemetry.Table) *distanceAxis {
	n := t.Len()
	ax := &distanceAxis{
		dist:       make([]float64, n),
		movingTime: make([]float64, n),
	}
	maxD := 0.0
	cumT := 0.0
	for i := 0; i < n; i++ {
		d := t.Distance[i]
		if isFinite(d) && d > maxD {
			maxD = d
		}
		ax.dist[i] = maxD

		dt, dd := t.DeltaTime[i], t.DeltaDistance[i]
		if !isFinite(dt) || dt < 0 {
			dt = 0
		}
		if !isFinite(dd) || dd < 0 {
			dd = 0
		}
		// Distance progress below GPS noise does not count as movement.
		if dt > 0 && dd > 0.5 {
			cumT += dt
		}
		ax.movingTime[i] = cumT
	}
	if t.HasElevation() {
		ax.elev = fillGaps(t.Elevation)
	}
	return ax
}

// fillGaps forward-fills NaN runs and back-fills the leading run.
func fillGaps(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	last := math.NaN()
	for i, v := range out {
		if isFinite(v) {
			last = v
		} else {
			out[i] = last
		}
	}
	next := math.NaN()
	for i := len(out) - 1; i >= 0; i-- {
		if isFinite(out[i]) {
			next = out[i]
		} else {
			out[i] = next
		}
	}
	return out
}

// searchLeft is the insertion index keeping xs sorted, matching side="left".
func searchLeft(xs []float64, v float64) int {
	return sort.Search(len(xs), func(i int) bool { return xs[i] >= v })
}

// searchRight matches side="right": the index past any run equal to v.
func searchRight(xs []float64, v float64) int {
	return sort.Search(len(xs), func(i int) bool { return xs[i] > v })
}
