package agents

import (
	"fmt"
	"sort"

	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
)

type Modality int

const (
	InPerson Modality = iota
	Online
	Hybrid
)

var modalityNames = [...]string{"in_person", "online", "hybrid"}

func (m Modality) String() string {
	if m < 0 || int(m) >= len(modalityNames) {
		return fmt.Sprintf("modality(%d)", int(m))
	}
	return modalityNames[m]
}

func (m Modality) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Online courses lose more students than in-person ones.
var modalityDropout = [...]float64{0.8, 1.4, 1.0}

const (
	baseDropout      = 0.12
	placementWindow  = 6 // months after graduation during which a hire counts
	estimatePriorN   = 10
	maxWaitlistLen   = 200
	graduateWageLift = 1.05
)

// Enrollment is one student's progress record.
type Enrollment struct {
	WorkerID           int
	EnrolledMonth      int
	Duration           int
	MonthsDone         int
	Progress           float64
	ExpectedCompletion int
}

type WaitlistEntry struct {
	WorkerID int
	Priority float64
	Since    int
}

type Alumnus struct {
	WorkerID  int
	Graduated int
	Placed    bool
}

type Program struct {
	ID       int
	Name     string
	RegionID int

	MaxEnrollment int
	Duration      int
	SkillGains    catalogs.SkillVector
	Quality       float64
	Modality      Modality
	MinEducation  catalogs.Education
	// Cost is tuition in months of living expenses.
	Cost float64

	CompletionRate float64
	PlacementRate  float64

	Students []Enrollment
	Waitlist []WaitlistEntry
	Alumni   []Alumnus

	Graduates int
	Dropouts  int
	Placed    int

	GraduatesThisMonth int
	DropoutsThisMonth  int

	baseCapacity  int
	boostCapacity int
	subsidy       float64

	// Duration and SkillGains as configured, held while a boost is applied.
	boosted      bool
	baseDuration int
	baseGains    catalogs.SkillVector
}

func NewProgram(name string, region, capacity, duration int, quality float64, modality Modality) *Program {
	return &Program{
		Name:           name,
		RegionID:       region,
		MaxEnrollment:  capacity,
		Duration:       duration,
		Quality:        mathx.Clamp01(quality),
		Modality:       modality,
		CompletionRate: 0.7,
		PlacementRate:  0.5,
		baseCapacity:   capacity,
	}
}

func (p *Program) Enrolled() int { return len(p.Students) }

func (p *Program) HasCapacity() bool { return len(p.Students) < p.MaxEnrollment }

// Boost applies a retraining intervention for the current month on top of
// the program's configured duration and skill gains. A zero value for any
// argument leaves that aspect at its configured value.
func (p *Program) Boost(extraCapacity, duration int, skills []int, subsidy float64) {
	if !p.boosted {
		p.boosted = true
		p.baseDuration = p.Duration
		p.baseGains = p.SkillGains
	}
	p.boostCapacity = extraCapacity
	p.Duration = p.baseDuration
	if duration > 0 {
		p.Duration = duration
	}
	p.SkillGains = p.baseGains
	for _, i := range skills {
		if i >= 0 && i < catalogs.NumSkills && p.SkillGains[i] < 0.2 {
			p.SkillGains[i] = 0.2
		}
	}
	p.subsidy = mathx.Clamp01(subsidy)
	p.resize()
}

// ClearBoost restores the configured capacity, duration and skill gains.
// Students already enrolled keep the duration they enrolled with.
func (p *Program) ClearBoost() {
	if p.boosted {
		p.boosted = false
		p.Duration = p.baseDuration
		p.SkillGains = p.baseGains
	}
	p.boostCapacity = 0
	p.subsidy = 0
	p.resize()
}

// resize never drops capacity below current enrollment; the excess drains
// as students leave.
func (p *Program) resize() {
	if p.baseCapacity == 0 && p.MaxEnrollment > 0 {
		p.baseCapacity = p.MaxEnrollment
	}
	p.MaxEnrollment = mathx.MaxInt(p.baseCapacity+p.boostCapacity, len(p.Students))
}

// Eligible checks funds and prerequisites; capacity is checked separately.
func (p *Program) Eligible(ctx *Context, w *Worker) bool {
	if w.ProgramID != NoProgram || w.Status == OutOfLaborForce {
		return false
	}
	if w.Education < p.MinEducation {
		return false
	}
	share := 1 - mathx.Clamp01(ctx.TrainingSubsidy+p.subsidy)
	return w.Savings >= p.Cost*share
}

// Enroll admits w if there is room. Employed workers quit to enroll.
func (p *Program) Enroll(ctx *Context, w *Worker) bool {
	if !p.HasCapacity() || !p.Eligible(ctx, w) {
		return false
	}
	if w.Status == Employed {
		ctx.Pop.Separate(w, Retraining)
	}
	share := 1 - mathx.Clamp01(ctx.TrainingSubsidy+p.subsidy)
	w.Savings -= p.Cost * share
	w.Status = Retraining
	w.ProgramID = p.ID
	w.Searching = false
	w.WantsRetraining = false
	w.WaitlistedAt = NoProgram
	d := mathx.MaxInt(1, p.Duration)
	p.Students = append(p.Students, Enrollment{
		WorkerID:           w.ID,
		EnrolledMonth:      ctx.Month,
		Duration:           d,
		ExpectedCompletion: ctx.Month + d,
	})
	return true
}

// Apply puts w on the waitlist.
func (p *Program) Apply(ctx *Context, w *Worker) bool {
	if w.WaitlistedAt != NoProgram || w.ProgramID != NoProgram || len(p.Waitlist) >= maxWaitlistLen {
		return false
	}
	p.Waitlist = append(p.Waitlist, WaitlistEntry{WorkerID: w.ID, Priority: Urgency(w), Since: ctx.Month})
	w.WaitlistedAt = p.ID
	return true
}

// Urgency orders the waitlist: long unemployment, older age and thin
// savings go first.
func Urgency(w *Worker) float64 {
	dur := mathx.Clamp01(float64(w.UnemployedMonths) / 12)
	age := mathx.Clamp01(float64(w.Age-45) / 20)
	savings := 1 - mathx.Clamp01(w.Savings/6)
	return 0.4*dur + 0.3*age + 0.3*savings
}

func (p *Program) dropoutChance(w *Worker) float64 {
	stress := 0.5 + w.FinancialStress()
	return (1 - p.CompletionRate) * baseDropout * stress * modalityDropout[p.Modality] * (1.5 - p.Quality)
}

// ProcessMonth advances every student, applies dropout, graduates finished
// students, tracks alumni placement and refills from the waitlist.
func (p *Program) ProcessMonth(ctx *Context) error {
	p.GraduatesThisMonth = 0
	p.DropoutsThisMonth = 0

	kept := p.Students[:0]
	for _, e := range p.Students {
		w := ctx.Pop.Worker(e.WorkerID)
		if w == nil {
			return fmt.Errorf("program %d: unknown student %d", p.ID, e.WorkerID)
		}
		if w.ProgramID != p.ID || w.Status != Retraining {
			continue
		}
		e.MonthsDone++
		e.Progress = mathx.Clamp01(float64(e.MonthsDone) / float64(e.Duration))

		if e.MonthsDone >= e.Duration {
			p.graduate(ctx, w)
			continue
		}
		if randx.Chance(ctx.Rand, p.dropoutChance(w)) {
			p.dropout(w)
			continue
		}
		kept = append(kept, e)
	}
	p.Students = kept

	p.trackAlumni(ctx)
	p.updateEstimates()
	p.refill(ctx)
	p.resize()
	return nil
}

func (p *Program) graduate(ctx *Context, w *Worker) {
	for i, g := range p.SkillGains {
		if g > 0 {
			w.AddSkill(i, g*p.Quality)
		}
	}
	w.Status = Unemployed
	w.ProgramID = NoProgram
	w.UnemployedMonths = 0
	w.Searching = true
	w.ReservationWage *= graduateWageLift
	if w.ReservationWage < ctx.MinimumWage {
		w.ReservationWage = ctx.MinimumWage
	}
	p.Alumni = append(p.Alumni, Alumnus{WorkerID: w.ID, Graduated: ctx.Month})
	p.Graduates++
	p.GraduatesThisMonth++
}

func (p *Program) dropout(w *Worker) {
	w.Status = Unemployed
	w.ProgramID = NoProgram
	w.Searching = true
	p.Dropouts++
	p.DropoutsThisMonth++
}

func (p *Program) trackAlumni(ctx *Context) {
	kept := p.Alumni[:0]
	for _, a := range p.Alumni {
		if ctx.Month-a.Graduated > placementWindow {
			continue
		}
		if !a.Placed {
			if w := ctx.Pop.Worker(a.WorkerID); w != nil && w.Status == Employed {
				a.Placed = true
				p.Placed++
			}
		}
		kept = append(kept, a)
	}
	p.Alumni = kept
}

// updateEstimates blends observed outcomes into the prior rates.
func (p *Program) updateEstimates() {
	g, d := float64(p.GraduatesThisMonth), float64(p.DropoutsThisMonth)
	if g+d > 0 {
		p.CompletionRate = (p.CompletionRate*estimatePriorN + g) / (estimatePriorN + g + d)
	}
	if p.Graduates > 0 {
		observed := float64(p.Placed) / float64(p.Graduates)
		p.PlacementRate = (p.PlacementRate*estimatePriorN + observed) / (estimatePriorN + 1)
	}
}

// refill reprioritizes the waitlist and admits the most urgent eligible
// workers while there is room.
func (p *Program) refill(ctx *Context) {
	if len(p.Waitlist) == 0 || !p.HasCapacity() {
		return
	}
	live := p.Waitlist[:0]
	for _, e := range p.Waitlist {
		w := ctx.Pop.Worker(e.WorkerID)
		stale := w == nil || w.WaitlistedAt != p.ID || w.ProgramID != NoProgram ||
			w.Status == OutOfLaborForce || (w.Status == Employed && !w.WantsRetraining)
		if stale {
			if w != nil && w.WaitlistedAt == p.ID {
				w.WaitlistedAt = NoProgram
			}
			continue
		}
		e.Priority = Urgency(w)
		live = append(live, e)
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].Priority != live[j].Priority {
			return live[i].Priority > live[j].Priority
		}
		return live[i].Since < live[j].Since
	})

	rest := live[:0]
	for _, e := range live {
		w := ctx.Pop.Worker(e.WorkerID)
		if p.HasCapacity() && p.Enroll(ctx, w) {
			continue
		}
		rest = append(rest, e)
	}
	p.Waitlist = rest
}

// Summary is a read-only projection of a program.
type Summary struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	RegionID       int     `json:"region_id"`
	Modality       string  `json:"modality"`
	Enrolled       int     `json:"enrolled"`
	MaxEnrollment  int     `json:"max_enrollment"`
	Waitlist       int     `json:"waitlist"`
	Duration       int     `json:"duration"`
	Quality        float64 `json:"quality"`
	CompletionRate float64 `json:"completion_rate"`
	PlacementRate  float64 `json:"placement_rate"`
	Graduates      int     `json:"graduates"`
	Dropouts       int     `json:"dropouts"`
	Placed         int     `json:"placed"`
}

func (p *Program) Summary() Summary {
	return Summary{
		ID:             p.ID,
		Name:           p.Name,
		RegionID:       p.RegionID,
		Modality:       p.Modality.String(),
		Enrolled:       len(p.Students),
		MaxEnrollment:  p.MaxEnrollment,
		Waitlist:       len(p.Waitlist),
		Duration:       p.Duration,
		Quality:        p.Quality,
		CompletionRate: p.CompletionRate,
		PlacementRate:  p.PlacementRate,
		Graduates:      p.Graduates,
		Dropouts:       p.Dropouts,
		Placed:         p.Placed,
	}
}

// RouteApplicants sends every worker who wants retraining to the best
// program: same region first, then the largest skill gain where the worker
// is weakest. Workers who cannot be enrolled directly join a waitlist.
func (pop *Population) RouteApplicants(ctx *Context) {
	if len(pop.Programs) == 0 {
		return
	}
	for _, w := range pop.Workers {
		if !w.WantsRetraining || w.ProgramID != NoProgram || w.WaitlistedAt != NoProgram {
			continue
		}
		best := pop.bestProgram(ctx, w)
		if best == nil {
			w.WantsRetraining = false
			continue
		}
		if best.HasCapacity() && best.Enroll(ctx, w) {
			continue
		}
		if !best.Apply(ctx, w) {
			w.WantsRetraining = false
		}
	}
}

func (pop *Population) bestProgram(ctx *Context, w *Worker) *Program {
	var best *Program
	bestScore := -1.0
	for _, p := range pop.Programs {
		if w.Education < p.MinEducation {
			continue
		}
		var fit float64
		for i, g := range p.SkillGains {
			fit += g * (1 - w.Skills[i])
		}
		score := fit*p.Quality + 0.2*p.PlacementRate
		if p.RegionID == w.RegionID {
			score += 0.5
		}
		if !p.HasCapacity() {
			score -= 0.3
		}
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}
