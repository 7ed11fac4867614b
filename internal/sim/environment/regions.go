package environment

import (
	"fmt"
	"sort"

	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
)

type Region struct {
	ID   int
	Name string
	Kind string
	// Population is the template's scale figure. It weights placement and
	// never changes; Residents is the live headcount.
	Population     int
	CostOfLiving   float64
	WageMultiplier float64
	IndustryMix    map[string]float64

	Residents         int
	LaborForce        int
	Employed          int
	Unemployed        int
	Firms             int
	AdoptingFirms     int
	UnemploymentRate  float64
	AverageWage       float64
	AIAdoptionRate    float64
	MigrationPressure float64
}

// RegionSnapshot is a pure projection of a Region; Restore(Snapshot()) is
// the identity on every field.
type RegionSnapshot struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Kind              string             `json:"kind"`
	Population        int                `json:"population"`
	CostOfLiving      float64            `json:"cost_of_living"`
	WageMultiplier    float64            `json:"wage_multiplier"`
	IndustryMix       map[string]float64 `json:"industry_mix"`
	Residents         int                `json:"residents"`
	LaborForce        int                `json:"labor_force"`
	Employed          int                `json:"employed"`
	Unemployed        int                `json:"unemployed"`
	Firms             int                `json:"firms"`
	AdoptingFirms     int                `json:"adopting_firms"`
	UnemploymentRate  float64            `json:"unemployment_rate"`
	AverageWage       float64            `json:"average_wage"`
	AIAdoptionRate    float64            `json:"ai_adoption_rate"`
	MigrationPressure float64            `json:"migration_pressure"`
}

func (r *Region) Snapshot() RegionSnapshot {
	mix := make(map[string]float64, len(r.IndustryMix))
	for k, v := range r.IndustryMix {
		mix[k] = v
	}
	return RegionSnapshot{
		ID:                r.ID,
		Name:              r.Name,
		Kind:              r.Kind,
		Population:        r.Population,
		CostOfLiving:      r.CostOfLiving,
		WageMultiplier:    r.WageMultiplier,
		IndustryMix:       mix,
		Residents:         r.Residents,
		LaborForce:        r.LaborForce,
		Employed:          r.Employed,
		Unemployed:        r.Unemployed,
		Firms:             r.Firms,
		AdoptingFirms:     r.AdoptingFirms,
		UnemploymentRate:  r.UnemploymentRate,
		AverageWage:       r.AverageWage,
		AIAdoptionRate:    r.AIAdoptionRate,
		MigrationPressure: r.MigrationPressure,
	}
}

func RestoreRegion(s RegionSnapshot) *Region {
	mix := make(map[string]float64, len(s.IndustryMix))
	for k, v := range s.IndustryMix {
		mix[k] = v
	}
	return &Region{
		ID:                s.ID,
		Name:              s.Name,
		Kind:              s.Kind,
		Population:        s.Population,
		CostOfLiving:      s.CostOfLiving,
		WageMultiplier:    s.WageMultiplier,
		IndustryMix:       mix,
		Residents:         s.Residents,
		LaborForce:        s.LaborForce,
		Employed:          s.Employed,
		Unemployed:        s.Unemployed,
		Firms:             s.Firms,
		AdoptingFirms:     s.AdoptingFirms,
		UnemploymentRate:  s.UnemploymentRate,
		AverageWage:       s.AverageWage,
		AIAdoptionRate:    s.AIAdoptionRate,
		MigrationPressure: s.MigrationPressure,
	}
}

// SampleIndustry draws an industry from the regional mix.
func (r *Region) SampleIndustry(rng randx.Source) string {
	keys := make([]string, 0, len(r.IndustryMix))
	for k := range r.IndustryMix {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	weights := make([]float64, len(keys))
	for i, k := range keys {
		weights[i] = r.IndustryMix[k]
	}
	i := mathx.PickWeighted(weights, rng.Float64())
	if i < 0 {
		return ""
	}
	return keys[i]
}

// RegionSystem owns one Region per geography.
type RegionSystem struct {
	regions []*Region
	weights []float64

	nationalUnemployment float64
	nationalWage         float64
	tally                *Tally
}

// NewRegionSystem instantiates n regions from the catalog templates. When n
// exceeds the template count, templates repeat with a numeric suffix.
func NewRegionSystem(n int, cat *catalogs.Catalog) (*RegionSystem, error) {
	if n <= 0 {
		return nil, fmt.Errorf("regions: need at least one region, got %d", n)
	}
	if len(cat.Regions) == 0 {
		return nil, fmt.Errorf("regions: catalog has no region templates")
	}
	rs := &RegionSystem{}
	for i := 0; i < n; i++ {
		tpl := cat.Regions[i%len(cat.Regions)]
		name := tpl.Name
		if i >= len(cat.Regions) {
			name = fmt.Sprintf("%s %d", tpl.Name, i/len(cat.Regions)+1)
		}
		mix := make(map[string]float64, len(tpl.IndustryMix))
		for k, v := range tpl.IndustryMix {
			mix[k] = v
		}
		rs.regions = append(rs.regions, &Region{
			ID:             i,
			Name:           name,
			Kind:           tpl.Kind,
			Population:     tpl.Population,
			CostOfLiving:   tpl.CostOfLiving,
			WageMultiplier: tpl.WageMultiplier,
			IndustryMix:    mix,
		})
		rs.weights = append(rs.weights, float64(tpl.Population))
	}
	return rs, nil
}

func (rs *RegionSystem) Len() int { return len(rs.regions) }

func (rs *RegionSystem) Get(id int) *Region {
	if id < 0 || id >= len(rs.regions) {
		return nil
	}
	return rs.regions[id]
}

func (rs *RegionSystem) All() []*Region { return rs.regions }

// Sample draws a region id weighted by template population. It is the only
// sampler used for worker and firm placement.
func (rs *RegionSystem) Sample(rng randx.Source) int {
	i := mathx.PickWeighted(rs.weights, rng.Float64())
	if i < 0 {
		return 0
	}
	return i
}

func (rs *RegionSystem) CostOfLiving(id int) float64 {
	if r := rs.Get(id); r != nil {
		return r.CostOfLiving
	}
	return 1
}

func (rs *RegionSystem) WageMultiplier(id int) float64 {
	if r := rs.Get(id); r != nil {
		return r.WageMultiplier
	}
	return 1
}

func (rs *RegionSystem) NationalUnemployment() float64 { return rs.nationalUnemployment }
func (rs *RegionSystem) NationalAverageWage() float64  { return rs.nationalWage }

// Tally accumulates one tick's observations; Commit replaces every region's
// live statistics with the tallied values.
type Tally struct {
	residents  []int
	employed   []int
	unemployed []int
	wageSum    []float64
	firms      []int
	adopting   []int
}

func (rs *RegionSystem) BeginTally() *Tally {
	n := len(rs.regions)
	rs.tally = &Tally{
		residents:  make([]int, n),
		employed:   make([]int, n),
		unemployed: make([]int, n),
		wageSum:    make([]float64, n),
		firms:      make([]int, n),
		adopting:   make([]int, n),
	}
	return rs.tally
}

// AddResident counts a worker living in region, whatever their status.
func (t *Tally) AddResident(region int) {
	if region < 0 || region >= len(t.residents) {
		return
	}
	t.residents[region]++
}

func (t *Tally) AddEmployed(region int, wage float64) {
	if region < 0 || region >= len(t.employed) {
		return
	}
	t.employed[region]++
	t.wageSum[region] += wage
}

func (t *Tally) AddUnemployed(region int) {
	if region < 0 || region >= len(t.unemployed) {
		return
	}
	t.unemployed[region]++
}

func (t *Tally) AddFirm(region int, adopting bool) {
	if region < 0 || region >= len(t.firms) {
		return
	}
	t.firms[region]++
	if adopting {
		t.adopting[region]++
	}
}

func (rs *RegionSystem) Commit() {
	t := rs.tally
	if t == nil {
		return
	}
	rs.tally = nil

	var totEmp, totUnemp int
	var totWage float64
	for i := range rs.regions {
		totEmp += t.employed[i]
		totUnemp += t.unemployed[i]
		totWage += t.wageSum[i]
	}
	rs.nationalUnemployment = 0
	if totEmp+totUnemp > 0 {
		rs.nationalUnemployment = float64(totUnemp) / float64(totEmp+totUnemp)
	}
	rs.nationalWage = 0
	if totEmp > 0 {
		rs.nationalWage = totWage / float64(totEmp)
	}

	for i, r := range rs.regions {
		r.Residents = t.residents[i]
		r.Employed = t.employed[i]
		r.Unemployed = t.unemployed[i]
		r.LaborForce = r.Employed + r.Unemployed
		r.Firms = t.firms[i]
		r.AdoptingFirms = t.adopting[i]
		r.UnemploymentRate = 0
		if r.LaborForce > 0 {
			r.UnemploymentRate = float64(r.Unemployed) / float64(r.LaborForce)
		}
		r.AverageWage = 0
		if r.Employed > 0 {
			r.AverageWage = t.wageSum[i] / float64(r.Employed)
		}
		r.AIAdoptionRate = 0
		if r.Firms > 0 {
			r.AIAdoptionRate = float64(r.AdoptingFirms) / float64(r.Firms)
		}
		r.MigrationPressure = migrationPressure(r, rs.nationalUnemployment, rs.nationalWage)
	}
}

// migrationPressure is positive when a region pulls workers in (low local
// unemployment, high real wages) and negative when it pushes them out.
func migrationPressure(r *Region, natUnemp, natWage float64) float64 {
	p := (natUnemp - r.UnemploymentRate) * 5
	if natWage > 0 && r.AverageWage > 0 && r.CostOfLiving > 0 {
		p += (r.AverageWage/r.CostOfLiving)/natWage - 1
	}
	return mathx.Clamp(p, -1, 1)
}

func (rs *RegionSystem) Snapshots() []RegionSnapshot {
	out := make([]RegionSnapshot, 0, len(rs.regions))
	for _, r := range rs.regions {
		out = append(out, r.Snapshot())
	}
	return out
}
