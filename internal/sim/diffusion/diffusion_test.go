package diffusion

import (
	"testing"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/randx"
)

func ring(n int, info float64) *agents.Population {
	pop := &agents.Population{}
	for i := 0; i < n; i++ {
		w := pop.AddWorker(agents.NewWorker())
		w.InfoLevel = info
		for p := range w.PolicySupport {
			w.PolicySupport[p] = 0.5
		}
	}
	for i, w := range pop.Workers {
		for _, d := range []int{1, 2, n - 1, n - 2} {
			w.Network = append(w.Network, agents.Tie{ID: (i + d) % n, Weight: 1})
		}
	}
	return pop
}

func TestStep_ValuesStayInRange(t *testing.T) {
	pop := ring(40, 0.5)
	for i, w := range pop.Workers {
		w.Anxiety = float64(i%5) / 4
		w.PolicySupport[catalogs.PolicyUBI] = float64(i % 2)
	}
	ctx := &agents.Context{Rand: randx.New(1), Pop: pop}
	d := New()
	for m := 1; m <= 24; m++ {
		ctx.Month = m
		if m%6 == 0 {
			d.Inject(MediaEvent{Kind: EventMassLayoff, Magnitude: 0.9, Region: National})
		}
		d.Step(ctx)
		for _, w := range pop.Workers {
			if w.InfoLevel < 0 || w.InfoLevel > 1 || w.Anxiety < 0 || w.Anxiety > 1 {
				t.Fatalf("month %d worker %d out of range: info=%v anxiety=%v", m, w.ID, w.InfoLevel, w.Anxiety)
			}
			for p, v := range w.PolicySupport {
				if v < 0 || v > 1 {
					t.Fatalf("policy %s=%v", catalogs.PolicyNames[p], v)
				}
			}
		}
	}
	if len(d.History()) != 24 || len(d.Events()) != 4 {
		t.Fatalf("history=%d events=%d", len(d.History()), len(d.Events()))
	}
}

func TestStep_OpinionsConverge(t *testing.T) {
	pop := ring(30, 0.5)
	for i, w := range pop.Workers {
		w.PolicySupport[catalogs.PolicyRobotTax] = float64(i%2) * 0.8
	}
	spread := func() float64 {
		lo, hi := 1.0, 0.0
		for _, w := range pop.Workers {
			v := w.PolicySupport[catalogs.PolicyRobotTax]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return hi - lo
	}
	before := spread()
	ctx := &agents.Context{Rand: randx.New(2), Pop: pop}
	d := New()
	for m := 1; m <= 12; m++ {
		ctx.Month = m
		d.Step(ctx)
	}
	if spread() >= before {
		t.Fatalf("spread did not shrink: %v -> %v", before, spread())
	}
}

func TestStep_ReinforcedPolicyNeverDrops(t *testing.T) {
	pop := ring(20, 0.5)
	for i, w := range pop.Workers {
		w.PolicySupport[catalogs.PolicyUBI] = float64(i%4) / 3
	}
	ctx := &agents.Context{Rand: randx.New(3), Pop: pop}
	ctx.Reinforced[catalogs.PolicyUBI] = true
	d := New()
	for m := 1; m <= 10; m++ {
		ctx.Month = m
		before := make([]float64, len(pop.Workers))
		for i, w := range pop.Workers {
			before[i] = w.PolicySupport[catalogs.PolicyUBI]
		}
		d.Step(ctx)
		for i, w := range pop.Workers {
			if w.PolicySupport[catalogs.PolicyUBI] < before[i] {
				t.Fatalf("month %d worker %d: ubi support fell", m, i)
			}
		}
	}
}

func TestPolicyAnnouncementRaisesSupport(t *testing.T) {
	pop := ring(10, 1)
	ctx := &agents.Context{Rand: &randx.Fixed{Values: []float64{0}}, Pop: pop, Month: 1}
	d := New()
	d.Inject(MediaEvent{Kind: EventPolicyAnnouncement, Policy: "wage_subsidy", Magnitude: 1, Region: National})
	pt := d.Step(ctx)
	if pt.Reached != 10 {
		t.Fatalf("reached=%d want 10", pt.Reached)
	}
	for _, w := range pop.Workers {
		if w.PolicySupport[catalogs.PolicyWageSubsidy] <= 0.5 {
			t.Fatalf("announcement had no effect: %v", w.PolicySupport[catalogs.PolicyWageSubsidy])
		}
	}
	if d.Pending() != 0 {
		t.Fatalf("pending events not drained")
	}
}

func TestCascades(t *testing.T) {
	d := &Diffusion{history: []Point{
		{Month: 1, MeanInfo: 0.40},
		{Month: 2, MeanInfo: 0.41},
		{Month: 3, MeanInfo: 0.55},
		{Month: 4, MeanInfo: 0.54},
	}}
	got := d.Cascades(0.05)
	if len(got) != 1 || got[0].Month != 3 {
		t.Fatalf("cascades=%+v", got)
	}
}

func TestEchoChambers(t *testing.T) {
	pop := ring(12, 0.5)
	pop.Workers[0].PolicySupport[catalogs.PolicyUBI] = 1
	pop.Workers[0].PolicySupport[catalogs.PolicyRobotTax] = 1
	got := EchoChambers(pop, 0.9)
	for _, id := range got {
		if id == 0 {
			t.Fatalf("dissenting worker reported as echo chamber")
		}
	}
	if len(got) < 6 {
		t.Fatalf("uniform ring should be mostly echo chambers, got %d", len(got))
	}
}

func TestSummarize(t *testing.T) {
	pop := ring(12, 0.5)
	d := &Diffusion{
		history: []Point{{Month: 1, MeanInfo: 0.2}, {Month: 2, MeanInfo: 0.4}},
		events:  []MediaEvent{{Month: 2, Kind: EventMassLayoff}},
	}
	sum := d.Summarize(pop)
	if sum.EchoChambers != 12 || sum.EchoChamberShare != 1 {
		t.Fatalf("echo chambers=%d share=%v want 12 1", sum.EchoChambers, sum.EchoChamberShare)
	}
	if len(sum.Cascades) != 1 || sum.Cascades[0].Month != 2 {
		t.Fatalf("cascades=%+v", sum.Cascades)
	}
	if len(sum.History) != 2 || sum.Events != 1 {
		t.Fatalf("history=%d events=%d", len(sum.History), sum.Events)
	}

	if empty := New().Summarize(&agents.Population{}); empty.EchoChambers != 0 || empty.EchoChamberShare != 0 {
		t.Fatalf("empty population summary=%+v", empty)
	}
}
