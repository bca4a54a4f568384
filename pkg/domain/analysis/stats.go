package analysis

import (
	"math"
	"sort"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// nanMean averages the finite values of xs, NaN when none are finite.
func nanMean(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range xs {
		if isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// nanStd is the population standard deviation over the finite values.
func nanStd(xs []float64) float64 {
	mean := nanMean(xs)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range xs {
		if isFinite(v) {
			d := v - mean
			sum += d * d
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}

func nanMin(xs []float64) float64 {
	out := math.NaN()
	for _, v := range xs {
		if isFinite(v) && (math.IsNaN(out) || v < out) {
			out = v
		}
	}
	return out
}

func nanMax(xs []float64) float64 {
	out := math.NaN()
	for _, v := range xs {
		if isFinite(v) && (math.IsNaN(out) || v > out) {
			out = v
		}
	}
	return out
}

func nanSum(xs []float64) float64 {
	sum := 0.0
	for _, v := range xs {
		if isFinite(v) {
			sum += v
		}
	}
	return sum
}

// finiteSorted returns the finite values of xs in ascending order.
func finiteSorted(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// nanPercentile interpolates linearly between order statistics, matching the
// conventional definition at p in [0,100]. NaN for an empty population.
func nanPercentile(xs []float64, p float64) float64 {
	vals := finiteSorted(xs)
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return vals[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return vals[lo]
	}
	frac := rank - float64(lo)
	return vals[lo] + frac*(vals[hi]-vals[lo])
}

func nanMedian(xs []float64) float64 {
	return nanPercentile(xs, 50)
}

// sampleStd is the ddof=1 standard deviation over finite values, 0 when
// fewer than two values are finite.
func sampleStd(xs []float64) float64 {
	mean := nanMean(xs)
	if math.IsNaN(mean) {
		return 0
	}
	sum, n := 0.0, 0
	for _, v := range xs {
		if isFinite(v) {
			d := v - mean
			sum += d * d
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return math.Sqrt(sum / float64(n-1))
}

// weightedMean averages values by the paired weights, skipping pairs where
// either side is non-finite or the weight is non-positive.
func weightedMean(values, weights []float64) float64 {
	var sum, wsum float64
	for i, v := range values {
		w := weights[i]
		if !isFinite(v) || !isFinite(w) || w <= 0 {
			continue
		}
		sum += v * w
		wsum += w
	}
	if wsum <= 0 {
		return math.NaN()
	}
	return sum / wsum
}

// weightedStd is the weighted population standard deviation.
func weightedStd(values, weights []float64) float64 {
	mean := weightedMean(values, weights)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	var sum, wsum float64
	for i, v := range values {
		w := weights[i]
		if !isFinite(v) || !isFinite(w) || w <= 0 {
			continue
		}
		d := v - mean
		sum += d * d * w
		wsum += w
	}
	return math.Sqrt(sum / wsum)
}

// weightedQuantile treats the weights as a step CDF and returns the smallest
// value whose cumulative weight reaches p of the total. Sorting is stable on
// the value so ties resolve deterministically.
func weightedQuantile(values, weights []float64, p float64) float64 {
	type pair struct{ v, w float64 }
	pairs := make([]pair, 0, len(values))
	for i, v := range values {
		w := weights[i]
		if !isFinite(v) || !isFinite(w) || w <= 0 {
			continue
		}
		pairs = append(pairs, pair{v, w})
	}
	if len(pairs) == 0 {
		return math.NaN()
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	total := 0.0
	for _, pr := range pairs {
		total += pr.w
	}
	target := p * total
	cum := 0.0
	for _, pr := range pairs {
		cum += pr.w
		if cum >= target {
			return pr.v
		}
	}
	return pairs[len(pairs)-1].v
}

// effectiveSampleSize is (sum w)^2 / sum w^2 over positive finite weights.
func effectiveSampleSize(weights []float64) float64 {
	var sum, sumsq float64
	for _, w := range weights {
		if !isFinite(w) || w <= 0 {
			continue
		}
		sum += w
		sumsq += w * w
	}
	if sumsq <= 0 {
		return 0
	}
	return sum * sum / sumsq
}

// linearSlope fits y = a + b*x by least squares over finite pairs and
// returns b. NaN with fewer than two pairs or a degenerate x spread.
func linearSlope(xs, ys []float64) float64 {
	var sx, sy, sxx, sxy float64
	n := 0
	for i, x := range xs {
		y := ys[i]
		if !isFinite(x) || !isFinite(y) {
			continue
		}
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	fn := float64(n)
	denom := fn*sxx - sx*sx
	if denom == 0 {
		return math.NaN()
	}
	return (fn*sxy - sx*sy) / denom
}

// weightedSlope is linearSlope with per-pair weights.
func weightedSlope(xs, ys, weights []float64) float64 {
	var sw, sx, sy, sxx, sxy float64
	n := 0
	for i, x := range xs {
		y, w := ys[i], weights[i]
		if !isFinite(x) || !isFinite(y) || !isFinite(w) || w <= 0 {
			continue
		}
		sw += w
		sx += w * x
		sy += w * y
		sxx += w * x * x
		sxy += w * x * y
		n++
	}
	if n < 2 || sw <= 0 {
		return math.NaN()
	}
	denom := sw*sxx - sx*sx
	if denom == 0 {
		return math.NaN()
	}
	return (sw*sxy - sx*sy) / denom
}

// rollingMean is a centered moving average that skips NaN inside the window
// and needs only one defined sample, mirroring min_periods=1 semantics.
func rollingMean(xs []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if window < 1 {
		window = 1
	}
	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := lo + window
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		sum, cnt := 0.0, 0
		for j := lo; j < hi; j++ {
			if isFinite(xs[j]) {
				sum += xs[j]
				cnt++
			}
		}
		if cnt == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(cnt)
		}
	}
	return out
}

// rollingMedian is the centered moving median with the same NaN-skipping
// window handling as rollingMean.
func rollingMedian(xs []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if window < 1 {
		window = 1
	}
	half := window / 2
	buf := make([]float64, 0, window)
	for i := 0; i < n; i++ {
		lo := i - half
		hi := lo + window
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		buf = buf[:0]
		for j := lo; j < hi; j++ {
			if isFinite(xs[j]) {
				buf = append(buf, xs[j])
			}
		}
		if len(buf) == 0 {
			out[i] = math.NaN()
			continue
		}
		sort.Float64s(buf)
		m := len(buf)
		if m%2 == 1 {
			out[i] = buf[m/2]
		} else {
			out[i] = (buf[m/2-1] + buf[m/2]) / 2
		}
	}
	return out
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
