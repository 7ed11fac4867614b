package agents

import (
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/randx"
)

// WageQuote describes a vacancy to be priced.
type WageQuote struct {
	Occupation catalogs.Occupation
	RegionID   int
	Automation float64
	WantsAI    bool
}

// WageQuoter prices new postings; the wage dynamics mechanism implements it.
type WageQuoter interface {
	PostingWage(q WageQuote) float64
}

// Context is the per-tick view every decision receives. It is rebuilt by
// the orchestrator for each month and must not be retained past the call.
type Context struct {
	Month    int
	Rand     randx.Source
	Catalog  *catalogs.Catalog
	Frontier *environment.Frontier
	Regions  *environment.RegionSystem
	Pop      *Population
	Wages    WageQuoter

	// TrainingSubsidy is the share of tuition covered publicly.
	TrainingSubsidy float64
	// MinimumWage and BaselineWage are annual.
	MinimumWage  float64
	BaselineWage float64

	// Reinforced marks policies embodied by an active intervention. Support
	// for a reinforced policy is never lowered during the month.
	Reinforced [catalogs.NumPolicies]bool
}

func (c *Context) exposure(occupationID string) float64 {
	if c.Frontier == nil {
		return 0
	}
	return c.Frontier.Exposure(occupationID)
}

func (c *Context) frontierLevel() float64 {
	if c.Frontier == nil {
		return 0
	}
	return c.Frontier.Level()
}

// MonthlyExpense is a worker's living cost per month in region.
func (c *Context) MonthlyExpense(region int) float64 {
	col := 1.0
	if c.Regions != nil {
		col = c.Regions.CostOfLiving(region)
	}
	base := c.BaselineWage
	if base <= 0 {
		base = 52000
	}
	return base * 0.7 * col / 12
}
