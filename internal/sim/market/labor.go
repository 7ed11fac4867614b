// Package market holds the per-tick market mechanisms: the labor market
// matching engine and wage dynamics.
package market

import (
	"fmt"
	"sort"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
	"laborsim.ai/internal/sim/scenario"
)

const (
	ownRegionVisibility   = 1.0
	otherRegionVisibility = 0.3 // scaled by the worker's mobility
	minInfoVisibility     = 0.3
	applyWageFloor        = 0.8 // apply when posting wage >= floor * reservation
	jobToJobPremium       = 1.05
)

// Stats is the market view of the population. It is a pure function of the
// population, so recomputing it without changes yields identical values.
type Stats struct {
	LaborForce       int     `json:"labor_force"`
	Employed         int     `json:"employed"`
	Unemployed       int     `json:"unemployed"`
	Retraining       int     `json:"retraining"`
	OutOfLaborForce  int     `json:"out_of_labor_force"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	MedianWage       float64 `json:"median_wage"`
	OpenPostings     int     `json:"open_postings"`
}

// MatchResult reports one matching phase.
type MatchResult struct {
	Month            int `json:"month"`
	Postings         int `json:"postings"`
	Searchers        int `json:"searchers"`
	SampledSearchers int `json:"sampled_searchers"`
	Applications     int `json:"applications"`
	Offers           int `json:"offers"`
	Hires            int `json:"hires"`
	JobToJob         int `json:"job_to_job"`
	Relocations      int `json:"relocations"`
	Layoffs          int `json:"layoffs"`
}

// LaborMarket converts vacancies and search into hires and layoffs.
type LaborMarket struct {
	params   scenario.MarketParams
	baseline float64

	TotalHires   int
	TotalLayoffs int
	last         Stats
}

func NewLaborMarket(p scenario.MarketParams, baselineWage float64) *LaborMarket {
	return &LaborMarket{params: p, baseline: baselineWage}
}

func (m *LaborMarket) Params() scenario.MarketParams { return m.params }

// LastStats returns the most recent RecomputeStats result.
func (m *LaborMarket) LastStats() Stats { return m.last }

type applicant struct {
	worker *agents.Worker
	score  float64
}

// Match runs one matching phase: visibility, applications, firm ranking and
// offers, acceptance, then execution of previously planned layoffs.
func (m *LaborMarket) Match(ctx *agents.Context) (MatchResult, error) {
	pop := ctx.Pop
	res := MatchResult{Month: ctx.Month}

	postings := pop.OpenPostings()
	res.Postings = len(postings)
	byRegion := map[int][]*agents.Posting{}
	byID := make(map[int]*agents.Posting, len(postings))
	for _, jp := range postings {
		byRegion[jp.RegionID] = append(byRegion[jp.RegionID], jp)
		byID[jp.ID] = jp
	}
	regionIDs := make([]int, 0, len(byRegion))
	for r := range byRegion {
		regionIDs = append(regionIDs, r)
	}
	sort.Ints(regionIDs)

	var searchers []*agents.Worker
	for _, w := range pop.Workers {
		w.ResetTransient()
		if w.Status == agents.Unemployed || (w.Status == agents.Employed && w.Searching) {
			searchers = append(searchers, w)
		}
	}
	res.Searchers = len(searchers)
	if len(searchers) > m.params.MaxSearchers {
		idx := randx.SampleIndices(ctx.Rand, len(searchers), m.params.MaxSearchers)
		sort.Ints(idx)
		sampled := make([]*agents.Worker, 0, len(idx))
		for _, i := range idx {
			sampled = append(sampled, searchers[i])
		}
		searchers = sampled
	}
	res.SampledSearchers = len(searchers)

	applicants := map[int][]applicant{}
	if len(postings) > 0 {
		for _, w := range searchers {
			visible := m.visibleJobs(ctx, w, byRegion, regionIDs)
			applied := 0
			for _, jp := range visible {
				if applied >= m.params.MaxApplications {
					break
				}
				if !m.worthApplying(w, jp) {
					continue
				}
				w.Applications = append(w.Applications, jp.ID)
				applicants[jp.ID] = append(applicants[jp.ID], applicant{worker: w})
				applied++
			}
			res.Applications += applied
		}
	}

	for _, jp := range postings {
		apps := applicants[jp.ID]
		if len(apps) == 0 {
			continue
		}
		f := pop.Firm(jp.FirmID)
		if f == nil {
			return res, fmt.Errorf("posting %d: unknown firm %d", jp.ID, jp.FirmID)
		}
		for i := range apps {
			apps[i].score = ScoreApplicant(f, jp, apps[i].worker)
		}
		sort.Slice(apps, func(i, j int) bool {
			if apps[i].score != apps[j].score {
				return apps[i].score > apps[j].score
			}
			return apps[i].worker.ID < apps[j].worker.ID
		})
		n := mathx.MinInt(len(apps), m.params.OffersPerPosting)
		for _, a := range apps[:n] {
			a.worker.Offers = append(a.worker.Offers, agents.Offer{
				PostingID: jp.ID,
				FirmID:    f.ID,
				Wage:      jp.Wage,
				Score:     a.score,
			})
			res.Offers++
		}
	}

	var withOffers []*agents.Worker
	for _, w := range searchers {
		if len(w.Offers) > 0 {
			withOffers = append(withOffers, w)
		}
	}
	ctx.Rand.Shuffle(len(withOffers), func(i, j int) { withOffers[i], withOffers[j] = withOffers[j], withOffers[i] })
	for _, w := range withOffers {
		m.accept(ctx, w, byID, &res)
	}

	for _, f := range pop.Firms {
		res.Layoffs += f.ExecuteLayoffs(ctx)
	}
	m.TotalHires += res.Hires
	m.TotalLayoffs += res.Layoffs
	return res, nil
}

// visibleJobs draws the postings a worker notices this month: every posting
// is seen with a probability set by region and information level. The draw
// stops at MaxCandidates and the result keeps the best-paid MaxVisibleJobs.
func (m *LaborMarket) visibleJobs(ctx *agents.Context, w *agents.Worker, byRegion map[int][]*agents.Posting, regionIDs []int) []*agents.Posting {
	info := minInfoVisibility + (1-minInfoVisibility)*mathx.Clamp01(w.InfoLevel)
	var out []*agents.Posting

	scan := func(region int, weight float64) bool {
		p := weight * info
		for _, jp := range byRegion[region] {
			if jp.Filled || jp.FirmID == w.EmployerID {
				continue
			}
			if randx.Chance(ctx.Rand, p) {
				out = append(out, jp)
				if len(out) >= m.params.MaxCandidates {
					return false
				}
			}
		}
		return true
	}
	if scan(w.RegionID, ownRegionVisibility) {
		other := otherRegionVisibility * mathx.Clamp01(w.Mobility)
		if other > 0 {
			for _, r := range regionIDs {
				if r == w.RegionID {
					continue
				}
				if !scan(r, other) {
					break
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Wage != out[j].Wage {
			return out[i].Wage > out[j].Wage
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > m.params.MaxVisibleJobs {
		out = out[:m.params.MaxVisibleJobs]
	}
	return out
}

func (m *LaborMarket) worthApplying(w *agents.Worker, jp *agents.Posting) bool {
	if w.Status == agents.Employed {
		return jp.Wage >= w.Wage*jobToJobPremium
	}
	if w.UnemployedMonths > m.params.DesperationMonths {
		return true
	}
	return jp.Wage >= applyWageFloor*w.ReservationWage
}

// ScoreApplicant is the firm's ranking of a worker for one posting.
func ScoreApplicant(f *agents.Firm, jp *agents.Posting, w *agents.Worker) float64 {
	skill := w.SkillMatch(jp.RequiredSkills)
	edu := 1.0
	if gap := int(jp.Education) - int(w.Education); gap > 0 {
		edu = 1 / float64(1+gap)
	}
	ai := 0.5
	if jp.WantsAI {
		ai = w.AISkill()
	}
	wageFit := 1.0
	if jp.Wage > 0 && w.ReservationWage > jp.Wage {
		wageFit = mathx.Clamp01(1 - (w.ReservationWage-jp.Wage)/jp.Wage)
	}
	if f.Strategy != agents.CostMinimizer {
		// Only cost minimizers care much about wage expectations.
		wageFit = 0.5 + 0.5*wageFit
	}
	local := 0.0
	if w.RegionID == jp.RegionID {
		local = 1
	}
	return 0.4*skill + 0.2*edu + 0.15*ai + 0.15*wageFit + 0.1*local
}

func (m *LaborMarket) accept(ctx *agents.Context, w *agents.Worker, byID map[int]*agents.Posting, res *MatchResult) {
	offers := w.Offers
	sort.Slice(offers, func(i, j int) bool {
		si, sj := offerValue(w, offers[i], byID), offerValue(w, offers[j], byID)
		if si != sj {
			return si > sj
		}
		return offers[i].PostingID < offers[j].PostingID
	})
	desperate := w.Status == agents.Unemployed && w.UnemployedMonths > m.params.DesperationMonths
	for _, o := range offers {
		jp := byID[o.PostingID]
		if jp == nil || jp.Filled {
			continue
		}
		if w.Status == agents.Employed {
			if o.Wage < w.Wage*jobToJobPremium {
				continue
			}
		} else if o.Wage < w.ReservationWage && !desperate {
			continue
		}
		f := ctx.Pop.Firm(jp.FirmID)
		if f == nil {
			continue
		}
		if w.Status == agents.Employed {
			res.JobToJob++
		}
		if w.RegionID != jp.RegionID {
			w.RegionID = jp.RegionID
			res.Relocations++
		}
		jp.Filled = true
		ctx.Pop.Employ(w, f, jp.OccupationID, jp.Industry, o.Wage)
		f.HiresThisMonth++
		res.Hires++
		return
	}
}

// offerValue is the worker's view of an offer: pay relative to the
// reservation wage, with a bonus for staying in the home region.
func offerValue(w *agents.Worker, o agents.Offer, byID map[int]*agents.Posting) float64 {
	res := w.ReservationWage
	if res <= 0 {
		res = 1
	}
	v := o.Wage / res
	if jp := byID[o.PostingID]; jp != nil && jp.RegionID == w.RegionID {
		v += 0.1
	}
	return v
}

// RecomputeStats derives the market statistics from the population. With no
// employed workers the median wage falls back to the baseline.
func (m *LaborMarket) RecomputeStats(pop *agents.Population) Stats {
	var s Stats
	wages := make([]float64, 0, len(pop.Workers))
	for _, w := range pop.Workers {
		switch w.Status {
		case agents.Employed:
			s.Employed++
			wages = append(wages, w.Wage)
		case agents.Unemployed:
			s.Unemployed++
		case agents.Retraining:
			s.Retraining++
		case agents.OutOfLaborForce:
			s.OutOfLaborForce++
		}
	}
	s.LaborForce = s.Employed + s.Unemployed
	if s.LaborForce > 0 {
		s.UnemploymentRate = float64(s.Unemployed) / float64(s.LaborForce)
	}
	if len(wages) > 0 {
		s.MedianWage = mathx.Median(wages)
	} else {
		s.MedianWage = m.baseline
	}
	s.OpenPostings = len(pop.OpenPostings())
	m.last = s
	return s
}
