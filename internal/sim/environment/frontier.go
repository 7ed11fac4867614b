package environment

import (
	"math"
	"sort"

	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
	"laborsim.ai/internal/sim/scenario"
)

// Breakthrough is a discrete jump in AI capability.
type Breakthrough struct {
	Month     int     `json:"month"`
	Magnitude float64 `json:"magnitude"`
	Scheduled bool    `json:"scheduled"`
}

// Frontier tracks how automatable each task category currently is. The
// orchestrator is the only writer; agents read Level and Exposure.
type Frontier struct {
	curve string
	pace  string
	base  float64

	month     int
	trend     float64 // curve value without breakthroughs
	boost     float64 // accumulated breakthrough jumps
	level     float64
	taskRates [catalogs.NumTaskCategories]float64

	scheduled map[int]float64
	history   []Breakthrough

	cat      *catalogs.Catalog
	exposure map[string]float64
}

func NewFrontier(s scenario.Scenario, cat *catalogs.Catalog) *Frontier {
	f := &Frontier{
		curve:     s.AdoptionCurve,
		pace:      s.AutomationPace,
		base:      0.15 + 0.3*s.InitialAIAdoption,
		scheduled: map[int]float64{},
		cat:       cat,
		exposure:  map[string]float64{},
	}
	for _, b := range s.Breakthroughs {
		f.scheduled[b.Month] += b.Magnitude
	}
	f.trend = f.base
	f.recompute()
	return f
}

func (f *Frontier) Level() float64 { return f.level }
func (f *Frontier) Month() int     { return f.month }

func (f *Frontier) TaskRate(category int) float64 {
	if category < 0 || category >= catalogs.NumTaskCategories {
		return 0
	}
	return f.taskRates[category]
}

// Breakthroughs returns the history of capability jumps, oldest first.
func (f *Frontier) Breakthroughs() []Breakthrough {
	return append([]Breakthrough(nil), f.history...)
}

// ScheduleBreakthrough queues a jump for a future month.
func (f *Frontier) ScheduleBreakthrough(month int, magnitude float64) {
	if month <= f.month || magnitude <= 0 {
		return
	}
	f.scheduled[month] += magnitude
}

// PaceMultiplier scales growth speed; "accelerating" ramps up with time.
func PaceMultiplier(pace string, month int) float64 {
	switch pace {
	case scenario.PaceSlow:
		return 0.5
	case scenario.PaceFast:
		return 1.6
	case scenario.PaceAccelerating:
		return 0.8 + float64(month)/30.0
	default:
		return 1.0
	}
}

// curveValue is the frontier trend at a given month before breakthroughs.
func curveValue(curve string, base float64, month int, pace float64) float64 {
	t := float64(month) * pace
	head := 1 - base
	switch curve {
	case scenario.CurveLinear:
		return base + head*t/120.0
	case scenario.CurveExponential:
		return base * math.Exp(t/60.0)
	case scenario.CurveStep:
		steps := math.Floor(t / 12.0)
		return base + head*0.12*steps
	default: // s-curve
		mid := 60.0
		k := 0.08
		s0 := 1 / (1 + math.Exp(k*mid))
		s := 1 / (1 + math.Exp(-k*(t-mid)))
		return base + head*(s-s0)/(1-s0)
	}
}

// Advance moves the frontier to month and returns the breakthroughs that
// happened during it.
func (f *Frontier) Advance(month int, rng randx.Source) []Breakthrough {
	f.month = month
	pace := PaceMultiplier(f.pace, month)
	trend := curveValue(f.curve, f.base, month, pace)
	// Accelerating pace can bend the curve back; the frontier never retreats.
	if trend > f.trend {
		f.trend = trend
	}

	var out []Breakthrough
	if mag, ok := f.scheduled[month]; ok {
		delete(f.scheduled, month)
		out = append(out, Breakthrough{Month: month, Magnitude: mathx.Clamp01(mag), Scheduled: true})
	}
	if rng != nil && randx.Chance(rng, 0.02*pace) {
		out = append(out, Breakthrough{Month: month, Magnitude: randx.Between(rng, 0.02, 0.08)})
	}
	for _, b := range out {
		f.boost += b.Magnitude * 0.5
		f.history = append(f.history, b)
	}
	f.recompute()
	return out
}

func (f *Frontier) recompute() {
	f.level = mathx.Clamp01(f.trend + f.boost)
	for i := range f.taskRates {
		f.taskRates[i] = mathx.Clamp01(f.level * catalogs.TaskSensitivity[i])
	}
	clear(f.exposure)
}

// Exposure is the share of an occupation's task mix the frontier can
// currently perform, memoized until the next Advance.
func (f *Frontier) Exposure(occupationID string) float64 {
	if v, ok := f.exposure[occupationID]; ok {
		return v
	}
	occ, ok := f.cat.Occupation(occupationID)
	if !ok {
		return 0
	}
	var e, total float64
	for i, w := range occ.Tasks {
		e += w * f.taskRates[i]
		total += w
	}
	if total > 0 {
		e /= total
	}
	e = mathx.Clamp01(e)
	f.exposure[occupationID] = e
	return e
}

// FrontierState is a read-only projection for queries and snapshots.
type FrontierState struct {
	Month         int                `json:"month"`
	Level         float64            `json:"level"`
	TaskRates     map[string]float64 `json:"task_rates"`
	Breakthroughs []Breakthrough     `json:"breakthroughs,omitempty"`
	Pending       []Breakthrough     `json:"pending,omitempty"`
}

func (f *Frontier) State() FrontierState {
	st := FrontierState{
		Month:         f.month,
		Level:         f.level,
		TaskRates:     make(map[string]float64, catalogs.NumTaskCategories),
		Breakthroughs: f.Breakthroughs(),
	}
	for i, n := range catalogs.TaskCategoryNames {
		st.TaskRates[n] = f.taskRates[i]
	}
	for m, mag := range f.scheduled {
		st.Pending = append(st.Pending, Breakthrough{Month: m, Magnitude: mag, Scheduled: true})
	}
	sort.Slice(st.Pending, func(i, j int) bool { return st.Pending[i].Month < st.Pending[j].Month })
	return st
}
