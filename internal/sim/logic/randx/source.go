// Package randx is the single pseudorandom source threaded through every
// stochastic decision of a run. A run seeded with the same value replays the
// same sequence of draws.
package randx

import (
	"math/rand"
	"time"
)

type Source interface {
	Float64() float64
	Intn(n int) int
	NormFloat64() float64
	Shuffle(n int, swap func(i, j int))
}

type seeded struct {
	r *rand.Rand
}

func New(seed int64) Source {
	return &seeded{r: rand.New(rand.NewSource(seed))}
}

// NewSeed returns a seed for runs that did not ask for one.
func NewSeed() int64 {
	s := time.Now().UnixNano()
	if s == 0 {
		s = 1
	}
	return s
}

func (s *seeded) Float64() float64     { return s.r.Float64() }
func (s *seeded) NormFloat64() float64 { return s.r.NormFloat64() }
func (s *seeded) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}

func (s *seeded) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}

// Chance reports whether an event with probability p fires.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Between draws uniformly from [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Normal draws from N(mean, sd).
func Normal(src Source, mean, sd float64) float64 {
	return mean + sd*src.NormFloat64()
}

// SampleIndices picks k distinct indices out of [0,n) uniformly using a
// partial Fisher-Yates shuffle. The result keeps draw order.
func SampleIndices(src Source, n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// Fixed replays a fixed cycle of Float64 values; used to force outcomes in
// tests. Intn and NormFloat64 are derived from the same cycle.
type Fixed struct {
	Values []float64
	i      int
}

func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.i%len(f.Values)]
	f.i++
	return v
}

func (f *Fixed) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(f.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

func (f *Fixed) NormFloat64() float64 { return (f.Float64() - 0.5) * 2 }

func (f *Fixed) Shuffle(n int, swap func(i, j int)) {}
