package market

import (
	"math"
	"testing"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/randx"
	"laborsim.ai/internal/sim/scenario"
)

func newCtx(t *testing.T, src randx.Source) (*agents.Context, *WageDynamics) {
	t.Helper()
	s := scenario.Defaults()
	cat := catalogs.Default()
	regions, err := environment.NewRegionSystem(s.NumRegions, cat)
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	wd := NewWageDynamics(s.Wages, cat, regions)
	return &agents.Context{
		Month:        1,
		Rand:         src,
		Catalog:      cat,
		Frontier:     environment.NewFrontier(s, cat),
		Regions:      regions,
		Pop:          &agents.Population{},
		Wages:        wd,
		MinimumWage:  s.Wages.MinimumWage,
		BaselineWage: s.Wages.NationalMedianWage,
	}, wd
}

func unemployed(pop *agents.Population, region int, reservation float64) *agents.Worker {
	w := pop.AddWorker(agents.NewWorker())
	w.Age = 30
	w.RegionID = region
	w.InfoLevel = 1
	w.ReservationWage = reservation
	w.Industry = "retail"
	return w
}

func TestRecomputeStats_Idempotent(t *testing.T) {
	ctx, _ := newCtx(t, randx.New(1))
	f := ctx.Pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	for i := 0; i < 8; i++ {
		w := ctx.Pop.AddWorker(agents.NewWorker())
		ctx.Pop.Employ(w, f, "cashier", "retail", 25000+float64(i)*2500)
	}
	for i := 0; i < 2; i++ {
		unemployed(ctx.Pop, 0, 30000)
	}
	m := NewLaborMarket(scenario.Defaults().Market, 52000)
	a := m.RecomputeStats(ctx.Pop)
	b := m.RecomputeStats(ctx.Pop)
	if a != b {
		t.Fatalf("recompute not idempotent: %+v vs %+v", a, b)
	}
	if a.UnemploymentRate != 0.2 {
		t.Fatalf("unemployment=%v want 0.2", a.UnemploymentRate)
	}
	if a.MedianWage != 33750 {
		t.Fatalf("median=%v want 33750", a.MedianWage)
	}
}

func TestRecomputeStats_EmptyEconomy(t *testing.T) {
	m := NewLaborMarket(scenario.Defaults().Market, 52000)
	s := m.RecomputeStats(&agents.Population{})
	if s.UnemploymentRate != 0 || s.MedianWage != 52000 {
		t.Fatalf("degenerate stats: %+v", s)
	}
}

func TestMatch_HiresAcceptableOffer(t *testing.T) {
	ctx, _ := newCtx(t, &randx.Fixed{Values: []float64{0}})
	f := ctx.Pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	f.Postings = []*agents.Posting{{ID: 1, FirmID: f.ID, OccupationID: "cashier", Industry: "retail", RegionID: 0, Wage: 30000}}
	w := unemployed(ctx.Pop, 0, 28000)

	m := NewLaborMarket(scenario.Defaults().Market, 52000)
	res, err := m.Match(ctx)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res.Hires != 1 || m.TotalHires != 1 {
		t.Fatalf("hires=%d total=%d want 1", res.Hires, m.TotalHires)
	}
	if w.Status != agents.Employed || w.EmployerID != f.ID || w.Wage != 30000 {
		t.Fatalf("worker not hired: %+v", w)
	}
	if !f.Postings[0].Filled {
		t.Fatalf("posting not marked filled")
	}
}

func TestMatch_ReservationWageAndDesperation(t *testing.T) {
	ctx, _ := newCtx(t, &randx.Fixed{Values: []float64{0}})
	f := ctx.Pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	f.Postings = []*agents.Posting{{ID: 1, FirmID: f.ID, OccupationID: "cashier", Industry: "retail", Wage: 26000}}
	picky := unemployed(ctx.Pop, 0, 30000)

	m := NewLaborMarket(scenario.Defaults().Market, 52000)
	if _, err := m.Match(ctx); err != nil {
		t.Fatalf("match: %v", err)
	}
	if picky.Status != agents.Unemployed {
		t.Fatalf("offer below reservation wage was accepted")
	}

	f.Postings[0].Filled = false
	picky.UnemployedMonths = scenario.Defaults().Market.DesperationMonths + 1
	if _, err := m.Match(ctx); err != nil {
		t.Fatalf("match: %v", err)
	}
	if picky.Status != agents.Employed {
		t.Fatalf("desperate worker should accept, status=%v", picky.Status)
	}
}

func TestMatch_SearcherCap(t *testing.T) {
	ctx, _ := newCtx(t, randx.New(3))
	for i := 0; i < 50; i++ {
		unemployed(ctx.Pop, 0, 20000)
	}
	p := scenario.Defaults().Market
	p.MaxSearchers = 10
	m := NewLaborMarket(p, 52000)
	res, err := m.Match(ctx)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res.Searchers != 50 || res.SampledSearchers != 10 {
		t.Fatalf("searchers=%d sampled=%d", res.Searchers, res.SampledSearchers)
	}
}

func TestVisibleJobs_CappedAndSortedByWage(t *testing.T) {
	ctx, _ := newCtx(t, &randx.Fixed{Values: []float64{0}})
	f := ctx.Pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	for i := 0; i < 40; i++ {
		f.Postings = append(f.Postings, &agents.Posting{ID: i + 1, FirmID: f.ID, Industry: "retail", RegionID: i % 2, Wage: 20000 + float64(i%13)*1000})
	}
	w := unemployed(ctx.Pop, 0, 20000)
	w.Mobility = 1

	p := scenario.Defaults().Market
	p.MaxCandidates = 25
	p.MaxVisibleJobs = 6
	m := NewLaborMarket(p, 52000)
	byRegion := map[int][]*agents.Posting{}
	for _, jp := range f.Postings {
		byRegion[jp.RegionID] = append(byRegion[jp.RegionID], jp)
	}
	got := m.visibleJobs(ctx, w, byRegion, []int{0, 1})
	if len(got) != 6 {
		t.Fatalf("visible=%d want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Wage > got[i-1].Wage {
			t.Fatalf("not sorted by wage: %v then %v", got[i-1].Wage, got[i].Wage)
		}
	}
}

func TestMatch_ExecutesPlannedLayoffs(t *testing.T) {
	ctx, _ := newCtx(t, randx.New(4))
	f := ctx.Pop.AddFirm(agents.NewFirm("retail", 0, agents.Small, agents.Balanced))
	w := ctx.Pop.AddWorker(agents.NewWorker())
	ctx.Pop.Employ(w, f, "cashier", "retail", 30000)
	w.MarkedForLayoff = true
	f.PlannedLayoffs = []agents.PlannedLayoff{{WorkerID: w.ID, Month: 1}}

	m := NewLaborMarket(scenario.Defaults().Market, 52000)
	ctx.Month = 2
	res, err := m.Match(ctx)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if res.Layoffs != 1 || w.Status != agents.Unemployed || m.TotalLayoffs != 1 {
		t.Fatalf("layoffs=%d status=%v", res.Layoffs, w.Status)
	}
}

func TestPostingWage_FloorAndPremium(t *testing.T) {
	_, wd := newCtx(t, randx.New(5))
	cat := catalogs.Default()
	cashier, _ := cat.Occupation("cashier")
	dev, _ := cat.Occupation("software_developer")

	low := wd.PostingWage(agents.WageQuote{Occupation: cashier, RegionID: 4, Automation: 1})
	if low < scenario.Defaults().Wages.MinimumWage {
		t.Fatalf("wage %v below minimum", low)
	}
	plain := wd.PostingWage(agents.WageQuote{Occupation: dev, RegionID: 0})
	ai := wd.PostingWage(agents.WageQuote{Occupation: dev, RegionID: 0, WantsAI: true})
	if ai <= plain {
		t.Fatalf("AI premium not applied: %v <= %v", ai, plain)
	}
	automated := wd.PostingWage(agents.WageQuote{Occupation: dev, RegionID: 0, Automation: 0.8})
	if automated >= plain {
		t.Fatalf("automation discount not applied: %v >= %v", automated, plain)
	}
}

func TestAdjust_BoundedMonthlyDelta(t *testing.T) {
	ctx, wd := newCtx(t, randx.New(6))
	f := ctx.Pop.AddFirm(agents.NewFirm("technology", 0, agents.Small, agents.Innovator))
	f.AIStatus = agents.AIScaling
	// Many open postings, no unemployed: a very tight market.
	for i := 0; i < 20; i++ {
		f.Postings = append(f.Postings, &agents.Posting{ID: i + 1, FirmID: f.ID, Industry: "technology", Wage: 90000})
	}
	var ws []*agents.Worker
	for i := 0; i < 5; i++ {
		w := ctx.Pop.AddWorker(agents.NewWorker())
		w.Skills[catalogs.SkillAI] = 1
		ctx.Pop.Employ(w, f, "software_developer", "technology", 100000)
		ws = append(ws, w)
	}
	maxDelta := scenario.Defaults().Wages.MaxMonthlyDelta
	for month := 0; month < 3; month++ {
		before := make([]float64, len(ws))
		for i, w := range ws {
			before[i] = w.Wage
		}
		res := wd.Adjust(ctx)
		if res.Adjusted != len(ws) {
			t.Fatalf("adjusted=%d want %d", res.Adjusted, len(ws))
		}
		for i, w := range ws {
			change := w.Wage/before[i] - 1
			if math.Abs(change) > maxDelta+1e-12 {
				t.Fatalf("wage moved %v, bound %v", change, maxDelta)
			}
			if change <= 0 {
				t.Fatalf("tight market should raise wages, change=%v", change)
			}
		}
	}
}

func TestAnalyze(t *testing.T) {
	ctx, wd := newCtx(t, randx.New(7))
	empty := wd.Analyze(ctx.Pop)
	if empty.Median != scenario.Defaults().Wages.NationalMedianWage || empty.Employed != 0 {
		t.Fatalf("empty analysis: %+v", empty)
	}
	f := ctx.Pop.AddFirm(agents.NewFirm("technology", 0, agents.Small, agents.Innovator))
	for i, wage := range []float64{40000, 60000, 80000, 100000} {
		w := ctx.Pop.AddWorker(agents.NewWorker())
		if i >= 2 {
			w.Skills[catalogs.SkillAI] = 0.9
		}
		ctx.Pop.Employ(w, f, "software_developer", "technology", wage)
	}
	a := wd.Analyze(ctx.Pop)
	if a.Median != 70000 || a.Mean != 70000 {
		t.Fatalf("median=%v mean=%v", a.Median, a.Mean)
	}
	if a.Gini <= 0 || a.ByIndustry["technology"] != 70000 {
		t.Fatalf("gini=%v by industry=%v", a.Gini, a.ByIndustry)
	}
	if math.Abs(a.AIPremium-(90000.0/50000.0-1)) > 1e-9 {
		t.Fatalf("ai premium=%v", a.AIPremium)
	}
}
