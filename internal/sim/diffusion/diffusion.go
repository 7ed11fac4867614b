// Package diffusion spreads information, economic anxiety and policy
// sentiment over the worker network and injects media events.
package diffusion

import (
	"math"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
)

const (
	EventMassLayoff         = "mass_layoff"
	EventAIBreakthrough     = "ai_breakthrough"
	EventPolicyAnnouncement = "policy_announcement"

	// National marks an event that is not tied to a region.
	National = -1
)

const (
	infoRate     = 0.1
	infoNoise    = 0.02
	infoDecay    = 0.01
	anxietyRate  = 0.1
	opinionRate  = 0.05
	echoMinTies  = 3
	historyLimit = 600

	// Thresholds used by Summarize.
	CascadeDelta   = 0.05
	EchoSimilarity = 0.9
)

// MediaEvent is a discrete news item. Exposure depends on the worker's
// information level and the event magnitude.
type MediaEvent struct {
	Month     int     `json:"month"`
	Kind      string  `json:"kind"`
	Magnitude float64 `json:"magnitude"`
	Region    int     `json:"region"`
	Policy    string  `json:"policy,omitempty"`
	Reached   int     `json:"reached"`
}

// Point is one month of global awareness metrics.
type Point struct {
	Month       int     `json:"month"`
	MeanInfo    float64 `json:"mean_info"`
	MeanAnxiety float64 `json:"mean_anxiety"`
	Events      int     `json:"events"`
	Reached     int     `json:"reached"`
}

type Diffusion struct {
	pending []MediaEvent
	events  []MediaEvent
	history []Point
}

func New() *Diffusion { return &Diffusion{} }

// Inject queues an event for the next Step.
func (d *Diffusion) Inject(ev MediaEvent) {
	ev.Magnitude = mathx.Clamp01(ev.Magnitude)
	d.pending = append(d.pending, ev)
}

func (d *Diffusion) Pending() int { return len(d.pending) }

// Events returns every delivered event, oldest first.
func (d *Diffusion) Events() []MediaEvent { return append([]MediaEvent(nil), d.events...) }

func (d *Diffusion) History() []Point { return append([]Point(nil), d.history...) }

// Step runs one synchronous network update, then delivers pending events.
func (d *Diffusion) Step(ctx *agents.Context) Point {
	pop := ctx.Pop
	n := len(pop.Workers)

	info := make([]float64, n)
	anx := make([]float64, n)
	pol := make([]catalogs.PolicyVector, n)
	for i, w := range pop.Workers {
		info[i], anx[i], pol[i] = w.InfoLevel, w.Anxiety, w.PolicySupport
	}

	for i, w := range pop.Workers {
		nInfo, nAnx, nPol, ok := neighborMeans(w, info, anx, pol)
		walk := randx.Normal(ctx.Rand, 0, infoNoise)
		if ok {
			w.InfoLevel = mathx.Clamp01(info[i] + infoRate*(nInfo-info[i]) + walk - infoDecay*info[i])
			w.Anxiety = mathx.Clamp01(anx[i] + anxietyRate*(nAnx-anx[i]))
			for p := 0; p < catalogs.NumPolicies; p++ {
				w.ShiftPolicy(ctx, p, opinionRate*(nPol[p]-pol[i][p]))
			}
		} else {
			w.InfoLevel = mathx.Clamp01(info[i] + walk - infoDecay*info[i])
		}
	}

	pt := Point{Month: ctx.Month, Events: len(d.pending)}
	for _, ev := range d.pending {
		ev.Month = ctx.Month
		ev.Reached = deliver(ctx, ev)
		pt.Reached += ev.Reached
		d.events = append(d.events, ev)
	}
	d.pending = d.pending[:0]

	if n > 0 {
		var si, sa float64
		for _, w := range pop.Workers {
			si += w.InfoLevel
			sa += w.Anxiety
		}
		pt.MeanInfo = si / float64(n)
		pt.MeanAnxiety = sa / float64(n)
	}
	d.history = append(d.history, pt)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	return pt
}

func neighborMeans(w *agents.Worker, info, anx []float64, pol []catalogs.PolicyVector) (float64, float64, catalogs.PolicyVector, bool) {
	var total, si, sa float64
	var sp catalogs.PolicyVector
	for _, t := range w.Network {
		if t.ID < 0 || t.ID >= len(info) || t.Weight <= 0 {
			continue
		}
		total += t.Weight
		si += t.Weight * info[t.ID]
		sa += t.Weight * anx[t.ID]
		for p := range sp {
			sp[p] += t.Weight * pol[t.ID][p]
		}
	}
	if total == 0 {
		return 0, 0, sp, false
	}
	for p := range sp {
		sp[p] /= total
	}
	return si / total, sa / total, sp, true
}

// exposureChance is the probability a worker sees an event.
func exposureChance(w *agents.Worker, ev MediaEvent) float64 {
	p := (0.2 + 0.6*w.InfoLevel) * (0.4 + 0.6*ev.Magnitude)
	if ev.Region != National && ev.Region != w.RegionID {
		p *= 0.3
	}
	return mathx.Clamp01(p)
}

func deliver(ctx *agents.Context, ev MediaEvent) int {
	policy := -1
	if ev.Policy != "" {
		if i, ok := catalogs.PolicyIndex(ev.Policy); ok {
			policy = i
		}
	}
	reached := 0
	for _, w := range ctx.Pop.Workers {
		if !randx.Chance(ctx.Rand, exposureChance(w, ev)) {
			continue
		}
		reached++
		mag := ev.Magnitude
		w.InfoLevel = mathx.Clamp01(w.InfoLevel + 0.05*mag)
		switch ev.Kind {
		case EventMassLayoff:
			w.Anxiety = mathx.Clamp01(w.Anxiety + 0.1*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyUBI, 0.02*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyJobGuarantee, 0.02*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyAIRegulation, 0.02*mag)
		case EventAIBreakthrough:
			w.Anxiety = mathx.Clamp01(w.Anxiety + 0.05*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyAIRegulation, 0.015*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyRobotTax, 0.01*mag)
			w.ShiftPolicy(ctx, catalogs.PolicyRetraining, 0.01*mag)
		case EventPolicyAnnouncement:
			if policy >= 0 {
				w.ShiftPolicy(ctx, policy, 0.03*mag)
			}
			w.Anxiety = mathx.Clamp01(w.Anxiety - 0.02*mag)
		}
	}
	return reached
}

// Cascade is a month whose mean information level moved by more than the
// detection threshold.
type Cascade struct {
	Month int     `json:"month"`
	Delta float64 `json:"delta"`
}

// Cascades scans the awareness history. Read-only.
func (d *Diffusion) Cascades(threshold float64) []Cascade {
	var out []Cascade
	for i := 1; i < len(d.history); i++ {
		delta := d.history[i].MeanInfo - d.history[i-1].MeanInfo
		if math.Abs(delta) > threshold {
			out = append(out, Cascade{Month: d.history[i].Month, Delta: delta})
		}
	}
	return out
}

// EchoChambers returns the IDs of workers whose policy views are more
// similar to their network's than threshold (1 = identical).
func EchoChambers(pop *agents.Population, threshold float64) []int {
	n := len(pop.Workers)
	info := make([]float64, n)
	anx := make([]float64, n)
	pol := make([]catalogs.PolicyVector, n)
	for i, w := range pop.Workers {
		pol[i] = w.PolicySupport
	}
	var out []int
	for i, w := range pop.Workers {
		if len(w.Network) < echoMinTies {
			continue
		}
		_, _, nPol, ok := neighborMeans(w, info, anx, pol)
		if !ok {
			continue
		}
		var diff float64
		for p := range nPol {
			diff += math.Abs(nPol[p] - pol[i][p])
		}
		if 1-diff/float64(catalogs.NumPolicies) > threshold {
			out = append(out, w.ID)
		}
	}
	return out
}

// Summary is the query view of the information layer.
type Summary struct {
	History          []Point   `json:"history"`
	Cascades         []Cascade `json:"cascades"`
	EchoChambers     int       `json:"echo_chambers"`
	EchoChamberShare float64   `json:"echo_chamber_share"`
	Events           int       `json:"events"`
}

func (d *Diffusion) Summarize(pop *agents.Population) Summary {
	echo := EchoChambers(pop, EchoSimilarity)
	sum := Summary{
		History:      d.History(),
		Cascades:     d.Cascades(CascadeDelta),
		EchoChambers: len(echo),
		Events:       len(d.events),
	}
	if n := len(pop.Workers); n > 0 {
		sum.EchoChamberShare = float64(len(echo)) / float64(n)
	}
	return sum
}
