package engine

import (
	"fmt"
	"math"
	"sort"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
	"laborsim.ai/internal/sim/market"
	"laborsim.ai/internal/sim/stats"
)

const (
	vacancyShare   = 0.01
	maxCompetitors = 10
	minTies        = 3
	localTieShare  = 0.8
)

var (
	sizeShares       = []float64{0.6, 0.3, 0.1}
	strategyShares   = []float64{0.3, 0.5, 0.2}
	programDurations = []int{3, 6, 9, 12}
)

// initialize builds the month-0 economy: regions and frontier, firms,
// workers with their employment, the social network, competitor sets and
// training programs.
func (s *Simulation) initialize() error {
	regions, err := environment.NewRegionSystem(s.sc.NumRegions, s.cat)
	if err != nil {
		return err
	}
	s.regions = regions
	s.frontier = environment.NewFrontier(s.sc, s.cat)
	s.labor = market.NewLaborMarket(s.sc.Market, s.sc.Wages.NationalMedianWage)
	s.wages = market.NewWageDynamics(s.sc.Wages, s.cat, s.regions)
	s.diffusion = diffusion.New()
	s.pop = &agents.Population{}

	if err := s.buildFirms(); err != nil {
		return err
	}
	s.buildWorkers()
	s.assignEmployment()
	s.buildNetwork()
	s.buildCompetitors()
	s.buildPrograms()

	counts, invalid := s.pop.StatusCounts()
	if invalid > 0 || sum(counts[:]) != len(s.pop.Workers) {
		return fmt.Errorf("initial population has %d workers in undefined states", invalid)
	}

	s.tallyRegions()
	ms := s.labor.RecomputeStats(s.pop)
	s.analysis = s.wages.Analyze(s.pop)
	s.baseline = stats.Collect(stats.Input{
		Month:       0,
		Pop:         s.pop,
		Market:      ms,
		Wages:       s.analysis,
		Frontier:    s.frontier,
		Regions:     s.regions,
		WithRegions: true,
	})
	s.baseline.Digest = s.StateDigest()
	s.detector = stats.NewDetector(s.sc.Analysis, s.baseline)
	return nil
}

func (s *Simulation) buildFirms() error {
	for i := 0; i < s.sc.NumFirms; i++ {
		region := s.regions.Sample(s.rng)
		industry := s.regions.Get(region).SampleIndustry(s.rng)
		ind, ok := s.cat.Industry(industry)
		if !ok {
			return fmt.Errorf("region %d: unknown industry %q in mix", region, industry)
		}
		size := agents.SizeClass(mathx.PickWeighted(sizeShares, s.rng.Float64()))
		strategy := agents.Strategy(mathx.PickWeighted(strategyShares, s.rng.Float64()))
		f := s.pop.AddFirm(agents.NewFirm(industry, region, size, strategy))

		if randx.Chance(s.rng, s.sc.InitialAIAdoption) {
			if randx.Chance(s.rng, 0.5) {
				f.AIStatus = agents.AIPiloting
				f.RaiseAutomation(0.02 * ind.AutomationPotential)
			} else {
				f.AIStatus = agents.AIScaling
				f.RaiseAutomation(0.1 * ind.AutomationPotential)
			}
			f.StageMonths = s.rng.Intn(3)
		} else if randx.Chance(s.rng, 0.5*s.sc.InitialAIAdoption) {
			f.AIStatus = agents.AIExploring
		}
	}
	return nil
}

func (s *Simulation) buildWorkers() {
	for i := 0; i < s.sc.NumWorkers; i++ {
		w := s.pop.AddWorker(agents.NewWorker())
		w.RegionID = s.regions.Sample(s.rng)
		w.Age = 22 + s.rng.Intn(43)
		w.Education = catalogs.Education(mathx.PickWeighted(catalogs.EducationShares, s.rng.Float64()))
		edu := float64(w.Education) / float64(catalogs.Doctorate)
		for k := range w.Skills {
			w.Skills[k] = mathx.Clamp01(randx.Between(s.rng, 0.1, 0.6) + 0.2*edu)
		}
		w.Skills[catalogs.SkillAI] = mathx.Clamp01(randx.Between(s.rng, 0, 0.3) + 0.1*edu)
		w.RiskTolerance = s.rng.Float64()
		w.Mobility = randx.Between(s.rng, 0, 0.6)
		w.InfoLevel = randx.Between(s.rng, 0.2, 0.7)
		w.Savings = randx.Between(s.rng, 0.5, 8)
		for p := range w.PolicySupport {
			w.PolicySupport[p] = randx.Between(s.rng, 0.3, 0.7)
		}
	}
}

// assignEmployment employs all but InitialUnemploymentRate of the workers,
// preferring firms in the worker's own region weighted by size. Large firms
// keep an open seat or two.
func (s *Simulation) assignEmployment() {
	n := len(s.pop.Workers)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	nEmployed := n - int(math.Round(float64(n)*s.sc.InitialUnemploymentRate))
	if len(s.pop.Firms) == 0 {
		nEmployed = 0
	}

	byRegion := map[int][]*agents.Firm{}
	for _, f := range s.pop.Firms {
		byRegion[f.RegionID] = append(byRegion[f.RegionID], f)
	}
	pick := func(firms []*agents.Firm) *agents.Firm {
		weights := make([]float64, len(firms))
		for i, f := range firms {
			weights[i] = agents.SizeWeights[f.Size]
		}
		i := mathx.PickWeighted(weights, s.rng.Float64())
		if i < 0 {
			return nil
		}
		return firms[i]
	}

	for k, id := range order {
		w := s.pop.Workers[id]
		if k >= nEmployed {
			s.seedUnemployed(w)
			continue
		}
		f := pick(byRegion[w.RegionID])
		if f == nil {
			f = pick(s.pop.Firms)
		}
		occ := s.occupationFor(f.Industry, w.Education)
		wage := s.wages.PostingWage(agents.WageQuote{Occupation: occ, RegionID: f.RegionID, Automation: f.Automation, WantsAI: f.AIStatus.Adopting()})
		wage *= randx.Between(s.rng, 0.9, 1.1)
		if wage < s.sc.Wages.MinimumWage {
			wage = s.sc.Wages.MinimumWage
		}
		s.pop.Employ(w, f, occ.ID, f.Industry, wage)
		w.Tenure = s.rng.Intn(120)
	}

	for _, f := range s.pop.Firms {
		f.BaseHeadcount = mathx.MaxInt(1, int(math.Round(float64(len(f.Employees))*(1+vacancyShare))))
		f.TargetHeadcount = f.BaseHeadcount
	}
}

// seedUnemployed gives a job seeker a prior occupation from its region and
// a reservation wage near the regional going rate.
func (s *Simulation) seedUnemployed(w *agents.Worker) {
	w.Status = agents.Unemployed
	w.Searching = true
	w.UnemployedMonths = s.rng.Intn(6)
	if industry := s.regions.Get(w.RegionID).SampleIndustry(s.rng); industry != "" {
		occ := s.occupationFor(industry, w.Education)
		w.OccupationID = occ.ID
		w.Industry = industry
		w.ReservationWage = 0.8 * occ.BaseWage * s.regions.WageMultiplier(w.RegionID)
	}
	if w.ReservationWage < s.sc.Wages.MinimumWage {
		w.ReservationWage = s.sc.Wages.MinimumWage
	}
}

// occupationFor returns the best-paid occupation in industry the worker is
// qualified for, or the least demanding one.
func (s *Simulation) occupationFor(industry string, edu catalogs.Education) catalogs.Occupation {
	occs := s.cat.OccupationsIn(industry)
	var best, easiest catalogs.Occupation
	found := false
	for i, o := range occs {
		if i == 0 || o.Education < easiest.Education {
			easiest = o
		}
		if o.Education <= edu && (!found || o.BaseWage > best.BaseWage) {
			best, found = o, true
		}
	}
	if found {
		return best
	}
	return easiest
}

// buildNetwork links every worker to a few others, mostly in its own
// region, with reciprocal ties while both ends have room.
func (s *Simulation) buildNetwork() {
	workers := s.pop.Workers
	if len(workers) < 2 {
		return
	}
	byRegion := map[int][]int{}
	for _, w := range workers {
		byRegion[w.RegionID] = append(byRegion[w.RegionID], w.ID)
	}
	linked := func(a *agents.Worker, id int) bool {
		for _, t := range a.Network {
			if t.ID == id {
				return true
			}
		}
		return false
	}
	for _, w := range workers {
		want := minTies + s.rng.Intn(6)
		for tries := 0; len(w.Network) < want && tries < want*4; tries++ {
			pool := byRegion[w.RegionID]
			if len(pool) < 2 || !randx.Chance(s.rng, localTieShare) {
				pool = nil
			}
			var other int
			if pool != nil {
				other = pool[s.rng.Intn(len(pool))]
			} else {
				other = s.rng.Intn(len(workers))
			}
			o := workers[other]
			if other == w.ID || linked(w, other) || len(o.Network) >= agents.MaxTies {
				continue
			}
			weight := randx.Between(s.rng, 0.2, 1)
			w.Network = append(w.Network, agents.Tie{ID: other, Weight: weight})
			o.Network = append(o.Network, agents.Tie{ID: w.ID, Weight: weight})
		}
	}
}

// buildCompetitors gives every firm up to ten same-industry rivals, local
// rivals first.
func (s *Simulation) buildCompetitors() {
	byIndustry := map[string][]int{}
	for _, f := range s.pop.Firms {
		byIndustry[f.Industry] = append(byIndustry[f.Industry], f.ID)
	}
	for _, f := range s.pop.Firms {
		var cands []int
		for _, id := range byIndustry[f.Industry] {
			if id != f.ID {
				cands = append(cands, id)
			}
		}
		s.rng.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })
		sort.SliceStable(cands, func(i, j int) bool {
			li := s.pop.Firms[cands[i]].RegionID == f.RegionID
			lj := s.pop.Firms[cands[j]].RegionID == f.RegionID
			return li && !lj
		})
		if len(cands) > maxCompetitors {
			cands = cands[:maxCompetitors]
		}
		f.Competitors = cands
	}
}

func (s *Simulation) buildPrograms() {
	for i := 0; i < s.sc.NumTrainingPrograms; i++ {
		region := i % s.regions.Len()
		focus := s.rng.Intn(catalogs.NumSkills)
		name := fmt.Sprintf("%s %s program", s.regions.Get(region).Name, catalogs.SkillNames[focus])
		p := agents.NewProgram(name, region,
			20+s.rng.Intn(31),
			programDurations[s.rng.Intn(len(programDurations))],
			randx.Between(s.rng, 0.5, 0.95),
			agents.Modality(s.rng.Intn(3)),
		)
		p.SkillGains[focus] = randx.Between(s.rng, 0.15, 0.3)
		for k := 0; k < 2; k++ {
			p.SkillGains[s.rng.Intn(catalogs.NumSkills)] += randx.Between(s.rng, 0.05, 0.15)
		}
		if randx.Chance(s.rng, 0.5) {
			p.SkillGains[catalogs.SkillAI] += randx.Between(s.rng, 0.1, 0.25)
		}
		if randx.Chance(s.rng, 0.2) {
			p.MinEducation = catalogs.Associate
		}
		p.Cost = randx.Between(s.rng, 0.5, 3)
		s.pop.AddProgram(p)
	}
}

func sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}
