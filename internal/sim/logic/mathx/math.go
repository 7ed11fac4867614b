package mathx

import (
	"math"
	"sort"
)

func Clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (p in [0,100]) using linear
// interpolation between closest ranks. The input must be sorted ascending.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	p = Clamp(p, 0, 100)
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Median sorts a copy of values and returns its median.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	cp := append([]float64(nil), values...)
	sort.Float64s(cp)
	return Percentile(cp, 50)
}

func Gini(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	sum := 0.0
	valid := make([]float64, 0, len(values))
	for _, x := range values {
		if x <= 0 {
			continue
		}
		valid = append(valid, x)
		sum += x
	}
	if len(valid) <= 1 || sum <= 0 {
		return 0
	}
	sort.Float64s(valid)
	// (2*sum_i i*x_i)/(n*sum x) - (n+1)/n, with i=1..n.
	n := float64(len(valid))
	var weighted float64
	for i, x := range valid {
		weighted += float64(i+1) * x
	}
	g := (2.0*weighted)/(n*sum) - (n+1.0)/n
	return Clamp01(g)
}

// PickWeighted maps roll in [0,1) onto the cumulative weights and returns the
// chosen index, or -1 when no weight is positive.
func PickWeighted(weights []float64, roll float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := Clamp(roll, 0, 1) * total
	var acc float64
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if target < acc {
			return i
		}
	}
	return last
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
