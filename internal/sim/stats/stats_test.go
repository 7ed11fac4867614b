package stats

import (
	"testing"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/market"
	"laborsim.ai/internal/sim/scenario"
)

func series(rates, adoption []float64) []MonthStats {
	out := make([]MonthStats, len(rates))
	for i := range rates {
		out[i] = MonthStats{Month: i + 1, UnemploymentRate: rates[i], AdoptingFirmShare: adoption[i], Hires: 2, Layoffs: 1}
	}
	return out
}

func TestDetector_TippingPointAndCascade(t *testing.T) {
	p := scenario.Defaults().Analysis
	base := MonthStats{Month: 0, UnemploymentRate: 0.05, AdoptingFirmShare: 0.1}
	d := NewDetector(p, base)

	rates := []float64{0.05, 0.05, 0.06, 0.06, 0.07, 0.08, 0.08, 0.08, 0.08, 0.08, 0.08, 0.085}
	adopt := []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.12, 0.15, 0.18, 0.2, 0.22, 0.25, 0.3}
	all := series(rates, adopt)

	var found []Pattern
	for i := range all {
		found = append(found, d.Observe(all[:i+1])...)
	}
	if len(found) != 2 {
		t.Fatalf("patterns=%+v", found)
	}
	if found[0].Kind != PatternTippingPoint || found[0].Month != 6 {
		t.Fatalf("first pattern: %+v", found[0])
	}
	if found[1].Kind != PatternAdoptionCascade || found[1].Month != 12 {
		t.Fatalf("second pattern: %+v", found[1])
	}
	if len(d.Patterns()) != 2 {
		t.Fatalf("detector kept %d patterns", len(d.Patterns()))
	}
}

func TestDetector_QuietSeries(t *testing.T) {
	p := scenario.Defaults().Analysis
	d := NewDetector(p, MonthStats{UnemploymentRate: 0.05})
	flat := series(make([]float64, 12), make([]float64, 12))
	for i := range flat {
		flat[i].UnemploymentRate = 0.05
	}
	for i := range flat {
		if got := d.Observe(flat[:i+1]); len(got) != 0 {
			t.Fatalf("month %d: unexpected %+v", i+1, got)
		}
	}
}

func TestSummarize(t *testing.T) {
	base := MonthStats{UnemploymentRate: 0.05, MedianWage: 50000}
	s := series([]float64{0.05, 0.09, 0.07}, []float64{0.1, 0.2, 0.3})
	s[2].MedianWage = 51000
	sum := Summarize(base, s, []Pattern{{Month: 2, Kind: PatternTippingPoint}})
	if sum.Months != 3 || sum.TotalHires != 6 || sum.TotalLayoffs != 3 {
		t.Fatalf("totals: %+v", sum)
	}
	if sum.PeakUnemployment != 0.09 || sum.PeakMonth != 2 || sum.FinalUnemployment != 0.07 {
		t.Fatalf("peak/final: %+v", sum)
	}
	if sum.InitialMedianWage != 50000 || sum.FinalMedianWage != 51000 || sum.FinalAdoptingShare != 0.3 {
		t.Fatalf("wages/adoption: %+v", sum)
	}
	if len(sum.Patterns) != 1 {
		t.Fatalf("patterns not carried")
	}
}

func TestCollect(t *testing.T) {
	pop := &agents.Population{}
	f := pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	f.AIStatus = agents.AIScaling
	pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	for i := 0; i < 4; i++ {
		w := pop.AddWorker(agents.NewWorker())
		w.PolicySupport[catalogs.PolicyUBI] = float64(i) / 4
		if i < 3 {
			pop.Employ(w, f, "cashier", "retail", 30000)
		}
	}
	m := market.NewLaborMarket(scenario.Defaults().Market, 52000)
	ms := m.RecomputeStats(pop)
	got := Collect(Input{Month: 3, Pop: pop, Market: ms})
	if got.Employed != 3 || got.Unemployed != 1 || got.UnemploymentRate != 0.25 {
		t.Fatalf("employment: %+v", got)
	}
	if got.AIStages["scaling"] != 1 || got.AIStages["none"] != 1 || got.AdoptingFirmShare != 0.5 {
		t.Fatalf("ai stages: %+v share=%v", got.AIStages, got.AdoptingFirmShare)
	}
	if got.PolicySupportMean["ubi"] != 0.375 || got.PolicySupportMedian["ubi"] != 0.375 {
		t.Fatalf("ubi support mean=%v median=%v", got.PolicySupportMean["ubi"], got.PolicySupportMedian["ubi"])
	}
	if got.Regions != nil {
		t.Fatalf("regions should only be attached on snapshot months")
	}
}
