package agents

import (
	"fmt"
	"math"
	"sort"

	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
)

// MaxCompetitors bounds a firm's competitor set.
const MaxCompetitors = 10

type AIStatus int

const (
	AINone AIStatus = iota
	AIExploring
	AIPiloting
	AIScaling
	AIMature
	NumAIStatuses
)

var aiStatusNames = [NumAIStatuses]string{"none", "exploring", "piloting", "scaling", "mature"}

func (s AIStatus) String() string {
	if s < 0 || s >= NumAIStatuses {
		return fmt.Sprintf("ai_status(%d)", int(s))
	}
	return aiStatusNames[s]
}

func (s AIStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AIStatus) UnmarshalText(b []byte) error {
	for i, n := range aiStatusNames {
		if n == string(b) {
			*s = AIStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ai status %q", string(b))
}

// Adopting reports whether the firm has committed to AI beyond exploration.
func (s AIStatus) Adopting() bool { return s >= AIPiloting }

// Minimum months spent in a stage before the next transition is considered.
var stageDwell = [NumAIStatuses]int{0, 3, 6, 12, 0}

type Strategy int

const (
	CostMinimizer Strategy = iota
	Balanced
	Innovator
)

var strategyNames = [...]string{"cost_minimizer", "balanced", "innovator"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type SizeClass int

const (
	Small SizeClass = iota
	Medium
	Large
)

var sizeNames = [...]string{"small", "medium", "large"}

func (s SizeClass) String() string {
	if s < 0 || int(s) >= len(sizeNames) {
		return fmt.Sprintf("size(%d)", int(s))
	}
	return sizeNames[s]
}

func (s SizeClass) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SizeWeights is the relative headcount share of each size class.
var SizeWeights = [...]float64{1, 3, 8}

// PlannedLayoff is executed at the first matching phase after Month.
type PlannedLayoff struct {
	WorkerID int
	Month    int
}

type Firm struct {
	ID       int
	Industry string
	RegionID int
	Size     SizeClass
	Strategy Strategy

	Employees   []int
	Competitors []int

	AIStatus      AIStatus
	StageMonths   int
	Automation    float64
	ROI           float64
	PilotFailures int

	BaseHeadcount   int
	TargetHeadcount int

	Postings       []*Posting
	PlannedLayoffs []PlannedLayoff

	HiresThisMonth   int
	LayoffsThisMonth int
}

func NewFirm(industry string, region int, size SizeClass, strategy Strategy) *Firm {
	return &Firm{Industry: industry, RegionID: region, Size: size, Strategy: strategy}
}

func (f *Firm) removeEmployee(workerID int) {
	for i, id := range f.Employees {
		if id == workerID {
			f.Employees = append(f.Employees[:i], f.Employees[i+1:]...)
			return
		}
	}
}

func (f *Firm) cancelLayoff(workerID int) bool {
	for i, pl := range f.PlannedLayoffs {
		if pl.WorkerID == workerID {
			f.PlannedLayoffs = append(f.PlannedLayoffs[:i], f.PlannedLayoffs[i+1:]...)
			return true
		}
	}
	return false
}

// CancelLayoff withdraws a planned layoff and clears the worker's mark.
func (f *Firm) CancelLayoff(w *Worker) bool {
	if !f.cancelLayoff(w.ID) {
		return false
	}
	w.MarkedForLayoff = false
	w.WageSubsidy = 0
	return true
}

// RaiseAutomation adds delta to the automation level. Automation never
// decreases.
func (f *Firm) RaiseAutomation(delta float64) {
	if delta <= 0 {
		return
	}
	f.Automation = mathx.Clamp01(f.Automation + delta)
}

func (f *Firm) setStage(s AIStatus) {
	f.AIStatus = s
	f.StageMonths = 0
}

// laborCost is the annual wage bill net of wage subsidies.
func (f *Firm) laborCost(pop *Population) float64 {
	var sum float64
	for _, id := range f.Employees {
		if w := pop.Worker(id); w != nil {
			sum += math.Max(0, w.Wage-12*w.WageSubsidy)
		}
	}
	return sum
}

// competitivePressure is the share of competitors ahead in adoption, blended
// with their mean automation lead.
func (f *Firm) competitivePressure(pop *Population) float64 {
	if len(f.Competitors) == 0 {
		return 0
	}
	var ahead, lead float64
	for _, id := range f.Competitors {
		c := pop.Firm(id)
		if c == nil {
			continue
		}
		if c.AIStatus > f.AIStatus {
			ahead++
		}
		lead += c.Automation - f.Automation
	}
	n := float64(len(f.Competitors))
	return mathx.Clamp01(0.6*ahead/n + 0.4*math.Max(0, lead/n)*2)
}

// ComputeROI compares the labor cost AI could save with implementation cost.
func (f *Firm) ComputeROI(ctx *Context, ind catalogs.Industry) float64 {
	cost := f.laborCost(ctx.Pop)
	if cost <= 0 {
		return -1
	}
	savings := cost * ind.AutomationPotential * ctx.frontierLevel() * 0.6
	impl := cost*0.12 + 40000*SizeWeights[f.Size]
	return savings/impl - 1
}

var roiThreshold = [...]float64{0.1, 0.25, -0.1}

// Decide advances the adoption state machine, resizes the workforce target
// and issues postings or layoff plans.
func (f *Firm) Decide(ctx *Context) error {
	ind, ok := ctx.Catalog.Industry(f.Industry)
	if !ok {
		return fmt.Errorf("firm %d: unknown industry %q", f.ID, f.Industry)
	}
	f.HiresThisMonth = 0
	f.LayoffsThisMonth = 0
	f.StageMonths++
	f.ROI = f.ComputeROI(ctx, ind)
	pressure := f.competitivePressure(ctx.Pop)
	f.advanceAdoption(ctx, ind, pressure)

	f.TargetHeadcount = f.targetHeadcount()
	f.plan(ctx)
	return nil
}

func (f *Firm) advanceAdoption(ctx *Context, ind catalogs.Industry, pressure float64) {
	level := ctx.frontierLevel()
	switch f.AIStatus {
	case AINone:
		p := 0.02 + 0.1*math.Max(0, f.ROI-roiThreshold[f.Strategy]) + 0.15*pressure + 0.05*ind.AIAffinity
		if f.Strategy == Innovator {
			p += 0.03
		}
		if randx.Chance(ctx.Rand, p) {
			f.setStage(AIExploring)
		}
	case AIExploring:
		if f.StageMonths >= stageDwell[AIExploring] && f.ROI > roiThreshold[f.Strategy] &&
			randx.Chance(ctx.Rand, 0.35+0.3*pressure) {
			f.setStage(AIPiloting)
		}
	case AIPiloting:
		f.RaiseAutomation(0.01 * ind.AutomationPotential)
		if f.StageMonths >= stageDwell[AIPiloting] {
			success := 0.55 + 0.3*ind.AIAffinity
			if f.Strategy == Innovator {
				success += 0.1
			}
			if randx.Chance(ctx.Rand, success) {
				f.setStage(AIScaling)
			} else {
				f.PilotFailures++
				f.setStage(AIExploring)
			}
		}
	case AIScaling:
		f.RaiseAutomation(0.04 * level * ind.AutomationPotential)
		if f.StageMonths >= stageDwell[AIScaling] && f.Automation >= 0.4*ind.AutomationPotential {
			f.setStage(AIMature)
		}
	case AIMature:
		f.RaiseAutomation(0.01 * level * ind.AutomationPotential)
	}
}

func (f *Firm) targetHeadcount() int {
	t := int(math.Round(float64(f.BaseHeadcount) * (1 - 0.6*f.Automation)))
	if t < 1 && f.BaseHeadcount > 0 {
		t = 1
	}
	return t
}

func (f *Firm) plan(ctx *Context) {
	f.Postings = f.Postings[:0]
	pending := len(f.PlannedLayoffs)
	gap := f.TargetHeadcount - (len(f.Employees) - pending)

	if gap > 0 && pending == 0 {
		f.post(ctx, mathx.MinInt(gap, 1+len(f.Employees)/5))
		return
	}
	if gap < 0 {
		n := mathx.MinInt(-gap, mathx.MaxInt(1, len(f.Employees)/10))
		f.planLayoffs(ctx, n)
	}
}

func (f *Firm) post(ctx *Context, n int) {
	occs := ctx.Catalog.OccupationsIn(f.Industry)
	if len(occs) == 0 || n <= 0 {
		return
	}
	wantsAI := f.AIStatus >= AIPiloting
	for i := 0; i < n; i++ {
		occ := occs[ctx.Rand.Intn(len(occs))]
		wage := occ.BaseWage
		if ctx.Wages != nil {
			wage = ctx.Wages.PostingWage(WageQuote{Occupation: occ, RegionID: f.RegionID, Automation: f.Automation, WantsAI: wantsAI})
		}
		f.Postings = append(f.Postings, &Posting{
			ID:             ctx.Pop.nextPostingID(),
			FirmID:         f.ID,
			OccupationID:   occ.ID,
			Industry:       f.Industry,
			RegionID:       f.RegionID,
			Wage:           wage,
			Education:      occ.Education,
			RequiredSkills: occ.RequiredSkills,
			Exposure:       ctx.exposure(occ.ID),
			WantsAI:        wantsAI,
			Month:          ctx.Month,
		})
	}
}

var layoffWageWeight = [...]float64{0.6, 0.4, 0.2}

// LayoffScore ranks a worker for layoff; higher goes first.
func (f *Firm) LayoffScore(ctx *Context, w *Worker, maxWage float64) float64 {
	wageShare := 0.0
	if maxWage > 0 {
		wageShare = w.Wage / maxWage
	}
	exposure := ctx.exposure(w.OccupationID)
	inverseTenure := 1 / (1 + float64(w.Tenure)/12)
	s := layoffWageWeight[f.Strategy]*wageShare + 0.3*exposure + 0.3*inverseTenure
	if f.Strategy == Innovator {
		s -= 0.2 * w.AISkill()
	}
	return s
}

func (f *Firm) planLayoffs(ctx *Context, n int) {
	type cand struct {
		id    int
		score float64
	}
	var maxWage float64
	for _, id := range f.Employees {
		if w := ctx.Pop.Worker(id); w != nil && w.Wage > maxWage {
			maxWage = w.Wage
		}
	}
	cands := make([]cand, 0, len(f.Employees))
	for _, id := range f.Employees {
		w := ctx.Pop.Worker(id)
		if w == nil || w.MarkedForLayoff {
			continue
		}
		cands = append(cands, cand{id: id, score: f.LayoffScore(ctx, w, maxWage)})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].id < cands[j].id
	})
	for i := 0; i < n && i < len(cands); i++ {
		w := ctx.Pop.Worker(cands[i].id)
		w.MarkedForLayoff = true
		f.PlannedLayoffs = append(f.PlannedLayoffs, PlannedLayoff{WorkerID: w.ID, Month: ctx.Month})
	}
}

// ExecuteLayoffs separates every worker whose layoff was planned before the
// current month and returns how many left.
func (f *Firm) ExecuteLayoffs(ctx *Context) int {
	kept := f.PlannedLayoffs[:0]
	var due []int
	for _, pl := range f.PlannedLayoffs {
		if pl.Month < ctx.Month {
			due = append(due, pl.WorkerID)
			continue
		}
		kept = append(kept, pl)
	}
	f.PlannedLayoffs = kept
	n := 0
	for _, id := range due {
		w := ctx.Pop.Worker(id)
		if w == nil || w.EmployerID != f.ID || w.Status != Employed || !w.MarkedForLayoff {
			continue
		}
		ctx.Pop.Separate(w, Unemployed)
		n++
	}
	f.LayoffsThisMonth += n
	return n
}
