package engine

import (
	"fmt"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/stats"
)

const (
	massLayoffMin  = 5
	massLayoffFull = 25.0
)

// context builds the decision context for month. Policy reinforcement is
// fixed for the whole month from the interventions active in it.
func (s *Simulation) context(month int) *agents.Context {
	ctx := &agents.Context{
		Month:           month,
		Rand:            s.rng,
		Catalog:         s.cat,
		Frontier:        s.frontier,
		Regions:         s.regions,
		Pop:             s.pop,
		Wages:           s.wages,
		TrainingSubsidy: s.sc.TrainingSubsidy,
		MinimumWage:     s.sc.Wages.MinimumWage,
		BaselineWage:    s.sc.Wages.NationalMedianWage,
	}
	for _, iv := range s.sc.Interventions {
		if !iv.ActiveAt(month) {
			continue
		}
		if p, ok := policyFor(iv.Type); ok {
			ctx.Reinforced[p] = true
		}
	}
	return ctx
}

// step runs one month. The phase order is fixed: wages adjust after the
// match so hires and layoffs feed the same month's wage base, and
// diffusion runs after interventions so announcements land the month they
// happen.
func (s *Simulation) step(month int) (stats.MonthStats, error) {
	ctx := s.context(month)

	// 1. Environment.
	bursts := s.frontier.Advance(month, s.rng)
	for _, b := range bursts {
		s.diffusion.Inject(diffusion.MediaEvent{Kind: diffusion.EventAIBreakthrough, Magnitude: 0.5 + 5*b.Magnitude, Region: diffusion.National})
	}
	s.breakthroughs = append(s.breakthroughs, bursts...)

	// 2. Firms.
	for _, f := range s.pop.Firms {
		if err := f.Decide(ctx); err != nil {
			return stats.MonthStats{}, err
		}
	}

	// 3. Workers.
	for _, w := range s.pop.Workers {
		if err := w.Decide(ctx); err != nil {
			return stats.MonthStats{}, err
		}
	}

	// 4. Training programs.
	s.pop.RouteApplicants(ctx)
	for _, p := range s.pop.Programs {
		if err := p.ProcessMonth(ctx); err != nil {
			return stats.MonthStats{}, err
		}
	}

	// 5. Labor market.
	match, err := s.labor.Match(ctx)
	if err != nil {
		return stats.MonthStats{}, err
	}
	s.injectMassLayoffs()

	// 6. Wages.
	s.wages.Adjust(ctx)

	// 7. Interventions.
	active := s.applyInterventions(ctx)

	// 8. Information diffusion.
	media := s.diffusion.Step(ctx)
	events := s.diffusion.Events()
	monthEvents := events[s.eventsSeen:]
	s.eventsSeen = len(events)

	// 9. Regions.
	s.tallyRegions()

	counts, invalid := s.pop.StatusCounts()
	if invalid > 0 {
		return stats.MonthStats{}, &InvariantError{Month: month, Msg: fmt.Sprintf("%d workers in an undefined employment state", invalid)}
	}
	if total := sum(counts[:]); total != len(s.pop.Workers) {
		return stats.MonthStats{}, &InvariantError{Month: month, Msg: fmt.Sprintf("status counts sum to %d, population is %d", total, len(s.pop.Workers))}
	}
	for _, p := range s.pop.Programs {
		if p.Enrolled() > p.MaxEnrollment {
			return stats.MonthStats{}, &InvariantError{Month: month, Msg: fmt.Sprintf("program %d enrolled %d over capacity %d", p.ID, p.Enrolled(), p.MaxEnrollment)}
		}
	}

	// 10. Statistics and patterns.
	ms := s.labor.RecomputeStats(s.pop)
	s.analysis = s.wages.Analyze(s.pop)
	every := s.sc.Analysis.RegionSnapshotEvery
	cur := stats.Collect(stats.Input{
		Month:         month,
		Pop:           s.pop,
		Market:        ms,
		Match:         match,
		Wages:         s.analysis,
		Frontier:      s.frontier,
		Regions:       s.regions,
		WithRegions:   every > 0 && month%every == 0,
		Breakthroughs: len(bursts),
		Media:         media,
	})
	cur.Digest = s.digest(month)
	s.series = append(s.series, cur)
	found := s.detector.Observe(s.series)
	for _, p := range found {
		s.logger.Printf("run %s: month %d %s: %s", s.runID, month, p.Kind, p.Description)
	}

	// 11. Snapshot out.
	entry := MonthLogEntry{
		RunID:         s.runID,
		Month:         month,
		Digest:        cur.Digest,
		Stats:         cur,
		Match:         match,
		Patterns:      found,
		Events:        append([]diffusion.MediaEvent(nil), monthEvents...),
		Active:        active,
		Breakthroughs: bursts,
	}
	for _, sink := range s.sinks {
		if err := sink.WriteMonth(entry); err != nil {
			s.logger.Printf("run %s: month sink: %v", s.runID, err)
		}
	}
	return cur, nil
}

// injectMassLayoffs turns a month's layoffs into regional news when enough
// workers lose their jobs in one region.
func (s *Simulation) injectMassLayoffs() {
	byRegion := make([]int, s.regions.Len())
	for _, f := range s.pop.Firms {
		if f.RegionID >= 0 && f.RegionID < len(byRegion) {
			byRegion[f.RegionID] += f.LayoffsThisMonth
		}
	}
	for region, n := range byRegion {
		if n < massLayoffMin {
			continue
		}
		s.diffusion.Inject(diffusion.MediaEvent{Kind: diffusion.EventMassLayoff, Magnitude: float64(n) / massLayoffFull, Region: region})
	}
}

func (s *Simulation) tallyRegions() {
	t := s.regions.BeginTally()
	for _, w := range s.pop.Workers {
		t.AddResident(w.RegionID)
		switch w.Status {
		case agents.Employed:
			t.AddEmployed(w.RegionID, w.Wage)
		case agents.Unemployed:
			t.AddUnemployed(w.RegionID)
		}
	}
	for _, f := range s.pop.Firms {
		t.AddFirm(f.RegionID, f.AIStatus.Adopting())
	}
	s.regions.Commit()
}
