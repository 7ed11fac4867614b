package agents

import (
	"fmt"

	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/logic/randx"
)

// MaxTies bounds a worker's network.
const MaxTies = 15

const (
	reservationDecayAfter = 3    // months of search before the reservation wage drops
	reservationDecay      = 0.95 // monthly factor once decaying
	exitAfterMonths       = 18
	exitMinAge            = 55
	exitChance            = 0.08
	retirementAge         = 67
	maxSavingsMonths      = 36
)

// Tie is a weak, non-owning reference to another worker.
type Tie struct {
	ID     int     `json:"id"`
	Weight float64 `json:"weight"`
}

// Offer is a job offer extended during one matching phase.
type Offer struct {
	PostingID int
	FirmID    int
	Wage      float64
	Score     float64
}

type Worker struct {
	ID        int
	Age       int
	Education catalogs.Education
	RegionID  int

	Status       Status
	EmployerID   int
	OccupationID string
	Industry     string
	Tenure       int // months with the current employer

	Skills catalogs.SkillVector

	Wage            float64 // annual
	Savings         float64 // months of living expenses
	ReservationWage float64 // annual

	RiskTolerance float64
	Mobility      float64
	InfoLevel     float64
	Anxiety       float64

	Network       []Tie
	PolicySupport catalogs.PolicyVector

	Searching        bool
	UnemployedMonths int
	DisplacementRisk float64
	MarkedForLayoff  bool
	WageSubsidy      float64 // monthly, while marked for layoff

	ProgramID       int
	WaitlistedAt    int
	WantsRetraining bool

	// Transient, cleared every matching phase.
	Applications []int
	Offers       []Offer
}

// NewWorker returns a worker with null references; the caller fills in
// demographics and adds it to a Population.
func NewWorker() *Worker {
	return &Worker{EmployerID: NoFirm, ProgramID: NoProgram, WaitlistedAt: NoProgram, Status: Unemployed}
}

func (w *Worker) AISkill() float64 { return w.Skills[catalogs.SkillAI] }

func (w *Worker) ResetTransient() {
	w.Applications = w.Applications[:0]
	w.Offers = w.Offers[:0]
}

// ShiftPolicy moves support for one policy by delta, clamped to [0,1].
// Decreases are dropped while the policy is reinforced.
func (w *Worker) ShiftPolicy(ctx *Context, policy int, delta float64) {
	if policy < 0 || policy >= catalogs.NumPolicies {
		return
	}
	if delta < 0 && ctx != nil && ctx.Reinforced[policy] {
		return
	}
	w.PolicySupport[policy] = mathx.Clamp01(w.PolicySupport[policy] + delta)
}

// AddSkill raises one skill, clamped to [0,1].
func (w *Worker) AddSkill(i int, delta float64) {
	if i < 0 || i >= catalogs.NumSkills {
		return
	}
	w.Skills[i] = mathx.Clamp01(w.Skills[i] + delta)
}

// SkillMatch is the mean coverage of the required skill levels, in [0,1].
func (w *Worker) SkillMatch(required map[string]float64) float64 {
	if len(required) == 0 {
		return 1
	}
	var sum float64
	for name, lvl := range required {
		i, ok := catalogs.SkillIndex(name)
		if !ok || lvl <= 0 {
			sum++
			continue
		}
		sum += mathx.Clamp01(w.Skills[i] / lvl)
	}
	return sum / float64(len(required))
}

// ComputeRisk scores exposure to AI-driven job loss from occupation
// exposure, the worker's AI skill, the employer's automation and tenure.
func (w *Worker) ComputeRisk(ctx *Context) float64 {
	if w.OccupationID == "" {
		return 0
	}
	exposure := ctx.exposure(w.OccupationID)
	employerAuto := 0.0
	if f := ctx.Pop.Firm(w.EmployerID); f != nil {
		employerAuto = f.Automation
	}
	tenure := 1.0 - 0.3*mathx.Clamp01(float64(w.Tenure)/120)
	risk := exposure * (1 - 0.5*w.AISkill()) * (0.5 + 0.5*employerAuto) * tenure
	return mathx.Clamp01(risk)
}

// Decide runs the worker's monthly behavior for its current status.
func (w *Worker) Decide(ctx *Context) error {
	if ctx.Month > 1 && ctx.Month%12 == 1 {
		w.Age++
	}
	w.DisplacementRisk = w.ComputeRisk(ctx)
	expense := ctx.MonthlyExpense(w.RegionID)

	switch w.Status {
	case Employed:
		w.decideEmployed(ctx, expense)
	case Unemployed:
		w.decideUnemployed(ctx)
	case Retraining:
		w.decideRetraining(ctx)
	case OutOfLaborForce:
		w.decideOutOfLaborForce(ctx)
	default:
		return fmt.Errorf("worker %d: undefined status %d", w.ID, int(w.Status))
	}
	w.Savings = mathx.Clamp(w.Savings, 0, maxSavingsMonths)
	return nil
}

func (w *Worker) decideEmployed(ctx *Context, expense float64) {
	w.Tenure++
	w.UnemployedMonths = 0
	if expense > 0 {
		surplus := w.Wage/12/expense - 1
		w.Savings += mathx.Clamp(surplus, -0.5, 0.5)
	}
	if w.Age >= retirementAge && randx.Chance(ctx.Rand, 0.15) {
		ctx.Pop.Separate(w, OutOfLaborForce)
		return
	}

	w.Anxiety += 0.1 * (w.DisplacementRisk - w.Anxiety)
	threshold := 0.3 + 0.4*w.RiskTolerance
	if w.DisplacementRisk <= threshold {
		if w.Searching && randx.Chance(ctx.Rand, 0.2) {
			w.Searching = false
		}
		w.ShiftPolicy(ctx, catalogs.PolicyAIRegulation, -0.002)
		return
	}

	excess := w.DisplacementRisk - threshold
	if !w.Searching && randx.Chance(ctx.Rand, 0.2+excess) {
		w.Searching = true
	}
	// A worker with savings and little AI skill may quit to retrain.
	if w.ProgramID == NoProgram && w.Savings >= 3 && w.AISkill() < 0.5 &&
		randx.Chance(ctx.Rand, 0.02+0.1*excess+0.05*ctx.TrainingSubsidy) {
		w.WantsRetraining = true
	}
	w.ShiftPolicy(ctx, catalogs.PolicyAIRegulation, 0.01*excess)
	w.ShiftPolicy(ctx, catalogs.PolicyRetraining, 0.01*excess)
	w.ShiftPolicy(ctx, catalogs.PolicyRobotTax, 0.005*excess)
}

func (w *Worker) decideUnemployed(ctx *Context) {
	w.UnemployedMonths++
	w.Searching = true
	w.Savings--

	if w.UnemployedMonths > reservationDecayAfter {
		w.ReservationWage *= reservationDecay
		if w.ReservationWage < ctx.MinimumWage {
			w.ReservationWage = ctx.MinimumWage
		}
	}
	target := mathx.Clamp01(0.4 + 0.04*float64(w.UnemployedMonths))
	w.Anxiety += 0.15 * (target - w.Anxiety)

	w.ShiftPolicy(ctx, catalogs.PolicyUBI, 0.01)
	w.ShiftPolicy(ctx, catalogs.PolicyJobGuarantee, 0.01)
	if w.DisplacementRisk > 0.3 {
		w.ShiftPolicy(ctx, catalogs.PolicyAIRegulation, 0.01)
	}

	if w.UnemployedMonths > exitAfterMonths && w.Age > exitMinAge && randx.Chance(ctx.Rand, exitChance) {
		w.Status = OutOfLaborForce
		w.Searching = false
		w.WantsRetraining = false
		return
	}
	if w.ProgramID == NoProgram && w.UnemployedMonths >= reservationDecayAfter &&
		randx.Chance(ctx.Rand, 0.05+0.15*ctx.TrainingSubsidy+0.1*w.DisplacementRisk) {
		w.WantsRetraining = true
	}
}

func (w *Worker) decideRetraining(ctx *Context) {
	w.Searching = false
	w.Savings -= 1 - 0.5*ctx.TrainingSubsidy
	w.Anxiety += 0.05 * (0.3 - w.Anxiety)
	w.ShiftPolicy(ctx, catalogs.PolicyRetraining, 0.005)
	w.ShiftPolicy(ctx, catalogs.PolicyEducationFunding, 0.005)
}

func (w *Worker) decideOutOfLaborForce(ctx *Context) {
	w.Searching = false
	if w.Age >= retirementAge {
		return
	}
	p := 0.02
	if w.Savings < 1 {
		p += 0.05
	}
	if randx.Chance(ctx.Rand, p) {
		w.Status = Unemployed
		w.UnemployedMonths = 0
		w.Searching = true
		if w.ReservationWage < ctx.MinimumWage {
			w.ReservationWage = ctx.MinimumWage
		}
	}
}

// FinancialStress is in [0,1]; it rises as savings run out.
func (w *Worker) FinancialStress() float64 {
	return mathx.Clamp01(1 - w.Savings/3)
}
