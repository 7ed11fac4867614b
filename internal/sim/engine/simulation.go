// Package engine drives a labor-market run: it owns the population and every
// mechanism, executes the monthly phases in a fixed order and publishes
// read-only projections for concurrent readers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/randx"
	"laborsim.ai/internal/sim/market"
	"laborsim.ai/internal/sim/scenario"
	"laborsim.ai/internal/sim/stats"
)

// Options carries optional collaborators. Every nil field is replaced by the
// canonical implementation.
type Options struct {
	RunID      string
	Catalog    *catalogs.Catalog
	Rand       randx.Source
	Logger     *log.Logger
	OnProgress func(Progress)
	Sinks      []MonthSink
}

// Simulation is single-threaded: only the goroutine calling Run or StepOnce
// touches agent state. Pause, Resume, Stop and the query methods are safe
// from any goroutine.
type Simulation struct {
	runID  string
	sc     scenario.Scenario
	cat    *catalogs.Catalog
	rng    randx.Source
	logger *log.Logger

	onProgress func(Progress)
	sinks      []MonthSink

	pop       *agents.Population
	frontier  *environment.Frontier
	regions   *environment.RegionSystem
	labor     *market.LaborMarket
	wages     *market.WageDynamics
	diffusion *diffusion.Diffusion
	detector  *stats.Detector
	analysis  market.Analysis

	month         int
	baseline      stats.MonthStats
	series        []stats.MonthStats
	breakthroughs []environment.Breakthrough
	wasActive     []bool
	eventsSeen    int
	failed        error

	running atomic.Bool
	ctrl    control
	state   atomic.Value // State
}

// New validates the scenario and builds the initial economy. Configuration
// problems are returned as *ConfigError before any month runs.
func New(sc scenario.Scenario, opts Options) (*Simulation, error) {
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	s := &Simulation{
		runID:      opts.RunID,
		sc:         sc,
		cat:        opts.Catalog,
		rng:        opts.Rand,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
		sinks:      opts.Sinks,
		wasActive:  make([]bool, len(sc.Interventions)),
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.cat == nil {
		s.cat = catalogs.Default()
	}
	if s.rng == nil {
		s.rng = randx.New(sc.Seed)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.ctrl.init()

	if err := s.initialize(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	s.publish(StatusIdle, nil)
	return s, nil
}

func (s *Simulation) RunID() string               { return s.runID }
func (s *Simulation) Scenario() scenario.Scenario { return s.sc }
func (s *Simulation) Month() int                  { return s.month }

// Population exposes the arena to tests and in-process tooling. It must not
// be used while Run is active.
func (s *Simulation) Population() *agents.Population { return s.pop }

// Run drives months until the configured duration, a Stop, a context
// cancellation or a failed month. The returned Result always holds every
// completed month.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, errors.New("simulation already running")
	}
	defer s.running.Store(false)

	s.logger.Printf("run %s: %d workers, %d firms, %d regions, %d months", s.runID, s.sc.NumWorkers, s.sc.NumFirms, s.sc.NumRegions, s.sc.DurationMonths)
	s.publish(StatusRunning, nil)
	for s.month < s.sc.DurationMonths {
		if err := s.ctrl.wait(ctx); err != nil {
			if errors.Is(err, errStopped) {
				s.logger.Printf("run %s: stopped after month %d", s.runID, s.month)
				s.publish(StatusStopped, nil)
				return s.Result(), nil
			}
			s.publish(StatusStopped, nil)
			return s.Result(), err
		}
		if _, _, err := s.StepOnce(); err != nil {
			s.logger.Printf("run %s: %v", s.runID, err)
			return s.Result(), err
		}
		if s.ctrl.isPaused() {
			s.publish(StatusPaused, nil)
		}
	}
	s.publish(StatusDone, nil)
	sum := s.Result().Summary
	s.logger.Printf("run %s: done, unemployment %.3f -> %.3f, hires=%d layoffs=%d patterns=%d",
		s.runID, sum.InitialUnemployment, sum.FinalUnemployment, sum.TotalHires, sum.TotalLayoffs, len(sum.Patterns))
	return s.Result(), nil
}

// StepOnce advances exactly one month with the same phase order as Run and
// returns the month number and its state digest.
func (s *Simulation) StepOnce() (month int, digest string, err error) {
	if s.failed != nil {
		return s.month, "", s.failed
	}
	if s.month >= s.sc.DurationMonths {
		return s.month, "", fmt.Errorf("run finished at month %d", s.month)
	}
	next := s.month + 1
	cur, err := s.step(next)
	if err != nil {
		terr := &TickError{Month: next, LastComplete: s.month, Err: err}
		s.failed = terr
		s.publish(StatusFailed, terr)
		return s.month, "", terr
	}
	s.month = next
	s.publish(StatusRunning, nil)
	if s.onProgress != nil {
		s.onProgress(Progress{
			RunID:        s.runID,
			Month:        next,
			TotalMonths:  s.sc.DurationMonths,
			Progress:     float64(next) / float64(s.sc.DurationMonths),
			CurrentStats: cur,
		})
	}
	return next, cur.Digest, nil
}

// Result assembles the run output from the months completed so far. Call
// it from the goroutine that drives the run, or after Run returns.
func (s *Simulation) Result() Result {
	patterns := s.detector.Patterns()
	return Result{
		RunID:         s.runID,
		Scenario:      s.sc,
		CatalogDigest: s.cat.Digest,
		Baseline:      s.baseline,
		Months:        append([]stats.MonthStats(nil), s.series...),
		Summary:       stats.Summarize(s.baseline, s.series, patterns),
		Events:        s.diffusion.Events(),
		Breakthroughs: append([]environment.Breakthrough(nil), s.breakthroughs...),
		Completed:     s.month >= s.sc.DurationMonths,
	}
}

func (s *Simulation) Pause()  { s.ctrl.pause() }
func (s *Simulation) Resume() { s.ctrl.resume() }
func (s *Simulation) Stop()   { s.ctrl.stop() }

// Paused reports whether a pause is pending or in effect.
func (s *Simulation) Paused() bool { return s.ctrl.isPaused() }

var errStopped = errors.New("stopped")

// control implements cooperative pause/resume/stop; the run loop only
// consults it between months.
type control struct {
	mu       sync.Mutex
	paused   bool
	resumed  chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func (c *control) init() {
	c.stopped = make(chan struct{})
}

func (c *control) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.paused = true
		c.resumed = make(chan struct{})
	}
}

func (c *control) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		close(c.resumed)
	}
}

func (c *control) stop() { c.stopOnce.Do(func() { close(c.stopped) }) }

func (c *control) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// wait blocks while paused and reports a stop or cancellation.
func (c *control) wait(ctx context.Context) error {
	select {
	case <-c.stopped:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.mu.Lock()
	paused, ch := c.paused, c.resumed
	c.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-c.stopped:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return c.wait(ctx)
	}
}
