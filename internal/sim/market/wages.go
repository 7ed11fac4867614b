package market

import (
	"sort"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/scenario"
)

// WageDynamics prices new postings and nudges incumbent wages. It satisfies
// agents.WageQuoter.
type WageDynamics struct {
	params  scenario.WageParams
	cat     *catalogs.Catalog
	regions *environment.RegionSystem

	// Vacancies per searching worker, refreshed by Adjust. 1 is balanced.
	industryTightness map[string]float64
	regionTightness   []float64
}

func NewWageDynamics(p scenario.WageParams, cat *catalogs.Catalog, regions *environment.RegionSystem) *WageDynamics {
	return &WageDynamics{
		params:            p,
		cat:               cat,
		regions:           regions,
		industryTightness: map[string]float64{},
	}
}

var _ agents.WageQuoter = (*WageDynamics)(nil)

func (wd *WageDynamics) Tightness(industry string) float64 {
	if t, ok := wd.industryTightness[industry]; ok {
		return t
	}
	return 1
}

// PostingWage is the market-clearing annual wage for a new vacancy.
func (wd *WageDynamics) PostingWage(q agents.WageQuote) float64 {
	occ := q.Occupation
	w := occ.BaseWage
	if ind, ok := wd.cat.Industry(occ.Industry); ok {
		w *= 1 + 0.3*(ind.WageMultiplier-1)
	}
	if wd.regions != nil {
		w *= wd.regions.WageMultiplier(q.RegionID)
	}
	if int(occ.Education) < len(catalogs.EducationWageMult) {
		w *= 1 + 0.3*(catalogs.EducationWageMult[occ.Education]-1)
	}
	if q.WantsAI {
		w *= 1 + wd.params.AIPremium
	}
	w *= 1 - wd.params.AutomationDiscount*q.Automation
	t := wd.Tightness(occ.Industry)
	w *= 1 + 0.1*mathx.Clamp(t-1, -0.5, 0.5)
	if w < wd.params.MinimumWage {
		w = wd.params.MinimumWage
	}
	return w
}

// AdjustResult summarizes one month of incumbent wage changes.
type AdjustResult struct {
	Adjusted  int     `json:"adjusted"`
	MeanDelta float64 `json:"mean_delta"`
}

// Adjust refreshes tightness from the postings left open after matching and
// moves every employed worker's wage toward it, bounded by MaxMonthlyDelta.
func (wd *WageDynamics) Adjust(ctx *agents.Context) AdjustResult {
	pop := ctx.Pop
	wd.refreshTightness(pop)

	natUnemp := 0.0
	if wd.regions != nil {
		natUnemp = wd.regions.NationalUnemployment()
	}
	var res AdjustResult
	var sum float64
	for _, w := range pop.Workers {
		if w.Status != agents.Employed || w.Wage <= 0 {
			continue
		}
		signal := 0.5*(wd.Tightness(w.Industry)-1) + 0.3*(wd.regionTight(w.RegionID)-1)
		if r := wd.regionInfo(w.RegionID); r != nil && r.LaborForce > 0 {
			signal -= 2 * (r.UnemploymentRate - natUnemp)
		}
		if f := pop.Firm(w.EmployerID); f != nil && f.AIStatus.Adopting() {
			signal += 0.5 * (w.AISkill() - 0.5) * wd.params.AIPremium * 4
		}
		delta := mathx.Clamp(signal*wd.params.MaxMonthlyDelta, -wd.params.MaxMonthlyDelta, wd.params.MaxMonthlyDelta)
		w.Wage *= 1 + delta
		if w.Wage < wd.params.MinimumWage {
			w.Wage = wd.params.MinimumWage
		}
		res.Adjusted++
		sum += delta
	}
	if res.Adjusted > 0 {
		res.MeanDelta = sum / float64(res.Adjusted)
	}
	return res
}

func (wd *WageDynamics) regionInfo(id int) *environment.Region {
	if wd.regions == nil {
		return nil
	}
	return wd.regions.Get(id)
}

func (wd *WageDynamics) regionTight(id int) float64 {
	if id < 0 || id >= len(wd.regionTightness) {
		return 1
	}
	return wd.regionTightness[id]
}

func (wd *WageDynamics) refreshTightness(pop *agents.Population) {
	vacInd := map[string]float64{}
	seekInd := map[string]float64{}
	nRegions := 0
	if wd.regions != nil {
		nRegions = wd.regions.Len()
	}
	vacReg := make([]float64, nRegions)
	seekReg := make([]float64, nRegions)

	for _, jp := range pop.OpenPostings() {
		vacInd[jp.Industry]++
		if jp.RegionID >= 0 && jp.RegionID < nRegions {
			vacReg[jp.RegionID]++
		}
	}
	for _, w := range pop.Workers {
		if w.Status != agents.Unemployed {
			continue
		}
		if w.Industry != "" {
			seekInd[w.Industry]++
		}
		if w.RegionID >= 0 && w.RegionID < nRegions {
			seekReg[w.RegionID]++
		}
	}
	clear(wd.industryTightness)
	for _, id := range wd.cat.IndustryIDs() {
		wd.industryTightness[id] = ratio(vacInd[id], seekInd[id])
	}
	wd.regionTightness = wd.regionTightness[:0]
	for i := 0; i < nRegions; i++ {
		wd.regionTightness = append(wd.regionTightness, ratio(vacReg[i], seekReg[i]))
	}
}

// ratio maps vacancies per seeker into [0,2] with 1 meaning balanced.
func ratio(vacancies, seekers float64) float64 {
	if vacancies == 0 && seekers == 0 {
		return 1
	}
	return 2 * vacancies / (vacancies + seekers)
}

// Analysis is a read-only wage breakdown of the employed population.
type Analysis struct {
	Employed    int                `json:"employed"`
	Mean        float64            `json:"mean"`
	Median      float64            `json:"median"`
	P10         float64            `json:"p10"`
	P25         float64            `json:"p25"`
	P75         float64            `json:"p75"`
	P90         float64            `json:"p90"`
	Gini        float64            `json:"gini"`
	ByIndustry  map[string]float64 `json:"by_industry"`
	ByRegion    map[int]float64    `json:"by_region"`
	ByEducation map[string]float64 `json:"by_education"`
	// AIPremium is the observed wage gap of AI-skilled workers (skill >= 0.5).
	AIPremium float64 `json:"ai_premium"`
}

// Analyze computes wage statistics. With nobody employed the median falls
// back to the national baseline.
func (wd *WageDynamics) Analyze(pop *agents.Population) Analysis {
	a := Analysis{
		ByIndustry:  map[string]float64{},
		ByRegion:    map[int]float64{},
		ByEducation: map[string]float64{},
	}
	var wages []float64
	sums := map[string][2]float64{}
	regSums := map[int][2]float64{}
	eduSums := map[string][2]float64{}
	var aiSum, aiN, otherSum, otherN float64
	for _, w := range pop.Workers {
		if w.Status != agents.Employed {
			continue
		}
		wages = append(wages, w.Wage)
		add(sums, w.Industry, w.Wage)
		addInt(regSums, w.RegionID, w.Wage)
		add(eduSums, w.Education.String(), w.Wage)
		if w.AISkill() >= 0.5 {
			aiSum += w.Wage
			aiN++
		} else {
			otherSum += w.Wage
			otherN++
		}
	}
	a.Employed = len(wages)
	if len(wages) == 0 {
		a.Median = wd.params.NationalMedianWage
		return a
	}
	sort.Float64s(wages)
	a.Mean = mathx.Mean(wages)
	a.Median = mathx.Percentile(wages, 50)
	a.P10 = mathx.Percentile(wages, 10)
	a.P25 = mathx.Percentile(wages, 25)
	a.P75 = mathx.Percentile(wages, 75)
	a.P90 = mathx.Percentile(wages, 90)
	a.Gini = mathx.Gini(wages)
	for k, v := range sums {
		a.ByIndustry[k] = v[0] / v[1]
	}
	for k, v := range regSums {
		a.ByRegion[k] = v[0] / v[1]
	}
	for k, v := range eduSums {
		a.ByEducation[k] = v[0] / v[1]
	}
	if aiN > 0 && otherN > 0 {
		other := otherSum / otherN
		if other > 0 {
			a.AIPremium = (aiSum/aiN)/other - 1
		}
	}
	return a
}

func add(m map[string][2]float64, k string, v float64) {
	s := m[k]
	s[0] += v
	s[1]++
	m[k] = s
}

func addInt(m map[int][2]float64, k int, v float64) {
	s := m[k]
	s[0] += v
	s[1]++
	m[k] = s
}
