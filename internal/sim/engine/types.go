package engine

import (
	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/market"
	"laborsim.ai/internal/sim/scenario"
	"laborsim.ai/internal/sim/stats"
)

// Progress is passed to the progress callback after every month.
type Progress struct {
	RunID        string           `json:"run_id"`
	Month        int              `json:"month"`
	TotalMonths  int              `json:"total_months"`
	Progress     float64          `json:"progress"`
	CurrentStats stats.MonthStats `json:"current_stats"`
}

// MonthLogEntry is what month sinks receive. Sinks are written from the run
// goroutine and must not block for long.
type MonthLogEntry struct {
	RunID         string                     `json:"run_id"`
	Month         int                        `json:"month"`
	Digest        string                     `json:"digest"`
	Stats         stats.MonthStats           `json:"stats"`
	Match         market.MatchResult         `json:"match"`
	Patterns      []stats.Pattern            `json:"patterns,omitempty"`
	Events        []diffusion.MediaEvent     `json:"events,omitempty"`
	Active        []string                   `json:"active_interventions,omitempty"`
	Breakthroughs []environment.Breakthrough `json:"breakthroughs,omitempty"`
}

type MonthSink interface {
	WriteMonth(entry MonthLogEntry) error
}

// Result is the output of a run. A stopped or failed run carries every
// month completed before it ended.
type Result struct {
	RunID         string                     `json:"run_id"`
	Scenario      scenario.Scenario          `json:"scenario"`
	CatalogDigest string                     `json:"catalog_digest"`
	Baseline      stats.MonthStats           `json:"baseline"`
	Months        []stats.MonthStats         `json:"months"`
	Summary       stats.Summary              `json:"summary"`
	Events        []diffusion.MediaEvent     `json:"events"`
	Breakthroughs []environment.Breakthrough `json:"breakthroughs"`
	Completed     bool                       `json:"completed"`
}

// Digests returns the per-month state digests in month order.
func (r Result) Digests() []string {
	out := make([]string, len(r.Months))
	for i, m := range r.Months {
		out[i] = m.Digest
	}
	return out
}

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusPaused  = "paused"
	StatusStopped = "stopped"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// State is the read-only projection published after every month. Query
// callers on other goroutines only ever see a complete month.
type State struct {
	RunID       string                       `json:"run_id"`
	Status      string                       `json:"status"`
	Month       int                          `json:"month"`
	TotalMonths int                          `json:"total_months"`
	Current     stats.MonthStats             `json:"current"`
	Frontier    environment.FrontierState    `json:"frontier"`
	Regions     []environment.RegionSnapshot `json:"regions"`
	Programs    []agents.Summary             `json:"programs"`
	Wages       market.Analysis              `json:"wages"`
	Patterns    []stats.Pattern              `json:"patterns"`
	Diffusion   diffusion.Summary            `json:"diffusion"`
	Error       string                       `json:"error,omitempty"`
}
