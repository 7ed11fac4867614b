package engine

import (
	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/market"
	"laborsim.ai/internal/sim/stats"
)

// publish stores a fresh projection. Called only from the run goroutine.
func (s *Simulation) publish(status string, err error) {
	st := State{
		RunID:       s.runID,
		Status:      status,
		Month:       s.month,
		TotalMonths: s.sc.DurationMonths,
		Current:     s.baseline,
		Frontier:    s.frontier.State(),
		Regions:     s.regions.Snapshots(),
		Programs:    make([]agents.Summary, 0, len(s.pop.Programs)),
		Wages:       s.analysis,
		Patterns:    s.detector.Patterns(),
		Diffusion:   s.diffusion.Summarize(s.pop),
	}
	if n := len(s.series); n > 0 {
		st.Current = s.series[n-1]
	}
	for _, p := range s.pop.Programs {
		st.Programs = append(st.Programs, p.Summary())
	}
	if err != nil {
		st.Error = err.Error()
	}
	s.state.Store(st)
}

// CurrentState returns the latest published projection.
func (s *Simulation) CurrentState() State {
	if s == nil {
		return State{}
	}
	v, ok := s.state.Load().(State)
	if !ok {
		return State{}
	}
	return v
}

func (s *Simulation) Regions() []environment.RegionSnapshot {
	return s.CurrentState().Regions
}

func (s *Simulation) Programs() []agents.Summary {
	return s.CurrentState().Programs
}

func (s *Simulation) WageAnalysis() market.Analysis {
	return s.CurrentState().Wages
}

// Diffusion reports awareness history, cascades and echo chambers.
func (s *Simulation) Diffusion() diffusion.Summary {
	return s.CurrentState().Diffusion
}

func (s *Simulation) CurrentStats() stats.MonthStats {
	return s.CurrentState().Current
}
