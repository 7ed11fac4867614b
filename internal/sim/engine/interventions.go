package engine

import (
	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/scenario"
)

// A wage subsidy rescues a planned layoff when it covers this share of the
// worker's annual wage.
const subsidyRescueShare = 0.15

const announcementMagnitude = 0.8

func policyFor(kind string) (int, bool) {
	switch kind {
	case scenario.InterventionUBI:
		return catalogs.PolicyUBI, true
	case scenario.InterventionRetraining:
		return catalogs.PolicyRetraining, true
	case scenario.InterventionWageSubsidy:
		return catalogs.PolicyWageSubsidy, true
	}
	return 0, false
}

// applyInterventions runs every intervention active this month in list
// order and returns their types. A retraining boost is withdrawn the first
// month its intervention is inactive.
func (s *Simulation) applyInterventions(ctx *agents.Context) []string {
	var active []string
	boosted := false
	for i, iv := range s.sc.Interventions {
		on := iv.ActiveAt(ctx.Month)
		if on && !s.wasActive[i] {
			s.diffusion.Inject(diffusion.MediaEvent{
				Kind:      diffusion.EventPolicyAnnouncement,
				Magnitude: announcementMagnitude,
				Region:    diffusion.National,
				Policy:    catalogs.PolicyNames[mustPolicy(iv.Type)],
			})
			s.logger.Printf("run %s: month %d: %s intervention active", s.runID, ctx.Month, iv.Type)
		}
		s.wasActive[i] = on
		if !on {
			continue
		}
		active = append(active, iv.Type)
		switch iv.Type {
		case scenario.InterventionUBI:
			s.applyUBI(ctx, iv)
		case scenario.InterventionRetraining:
			s.applyRetraining(iv)
			boosted = true
		case scenario.InterventionWageSubsidy:
			s.applyWageSubsidy(ctx, iv)
		}
	}
	if !boosted {
		for _, p := range s.pop.Programs {
			p.ClearBoost()
		}
	}
	return active
}

func mustPolicy(kind string) int {
	p, _ := policyFor(kind)
	return p
}

// applyUBI credits a monthly cash amount to savings, which are kept in
// months of local living expenses. Non-universal UBI only reaches workers
// without a wage.
func (s *Simulation) applyUBI(ctx *agents.Context, iv scenario.Intervention) {
	amount := iv.Float("amount", 0)
	if amount <= 0 {
		return
	}
	universal := iv.Bool("universal", true)
	for _, w := range s.pop.Workers {
		if !universal && w.Status == agents.Employed {
			continue
		}
		if expense := ctx.MonthlyExpense(w.RegionID); expense > 0 {
			w.Savings += amount / expense
		}
	}
}

func (s *Simulation) applyRetraining(iv scenario.Intervention) {
	capacity := int(iv.Float("capacity", 0))
	duration := int(iv.Float("duration", 0))
	subsidy := iv.Float("subsidy", 0)
	var skills []int
	for _, name := range iv.Strings("skills") {
		if i, ok := catalogs.SkillIndex(name); ok {
			skills = append(skills, i)
		}
	}
	for _, p := range s.pop.Programs {
		p.Boost(capacity, duration, skills, subsidy)
	}
}

// applyWageSubsidy pays the monthly amount for every worker marked for
// layoff. The payment lands in the worker's savings, and the employer
// counts it against the worker's wage until the layoff executes. When the
// subsidy is large enough relative to the wage the employer withdraws the
// layoff.
func (s *Simulation) applyWageSubsidy(ctx *agents.Context, iv scenario.Intervention) {
	amount := iv.Float("amount", 0)
	if amount <= 0 {
		return
	}
	for _, w := range s.pop.Workers {
		if !w.MarkedForLayoff || w.Status != agents.Employed {
			continue
		}
		if expense := ctx.MonthlyExpense(w.RegionID); expense > 0 {
			w.Savings += amount / expense
		}
		w.WageSubsidy = amount
		if amount*12 < subsidyRescueShare*w.Wage {
			continue
		}
		if f := s.pop.Firm(w.EmployerID); f != nil {
			f.CancelLayoff(w)
		}
	}
}
