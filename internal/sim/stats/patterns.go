package stats

import (
	"fmt"
	"math"

	"laborsim.ai/internal/sim/scenario"
)

const (
	PatternTippingPoint    = "tipping_point"
	PatternAdoptionCascade = "adoption_cascade"
)

// Pattern is a timestamped annotation of emergent behavior. Patterns are
// observations only; nothing in the simulation reads them back.
type Pattern struct {
	Month       int     `json:"month"`
	Kind        string  `json:"kind"`
	From        float64 `json:"from"`
	To          float64 `json:"to"`
	Delta       float64 `json:"delta"`
	Description string  `json:"description"`
}

// Detector compares the latest month with the one a window earlier every
// window months.
type Detector struct {
	params   scenario.AnalysisParams
	baseline MonthStats
	found    []Pattern
}

func NewDetector(p scenario.AnalysisParams, baseline MonthStats) *Detector {
	return &Detector{params: p, baseline: baseline}
}

func (d *Detector) Patterns() []Pattern { return append([]Pattern(nil), d.found...) }

// Observe inspects the series after a month was appended and returns the
// patterns detected this month.
func (d *Detector) Observe(series []MonthStats) []Pattern {
	if len(series) == 0 || d.params.PatternEveryMonths <= 0 {
		return nil
	}
	cur := series[len(series)-1]
	if cur.Month%d.params.PatternEveryMonths != 0 {
		return nil
	}
	prev, ok := d.at(series, cur.Month-d.params.PatternEveryMonths)
	if !ok {
		return nil
	}

	var out []Pattern
	du := cur.UnemploymentRate - prev.UnemploymentRate
	if math.Abs(du) >= d.params.TippingPointDelta {
		dir := "rose"
		if du < 0 {
			dir = "fell"
		}
		out = append(out, Pattern{
			Month: cur.Month, Kind: PatternTippingPoint,
			From: prev.UnemploymentRate, To: cur.UnemploymentRate, Delta: du,
			Description: fmt.Sprintf("unemployment %s %.1f points in %d months", dir, math.Abs(du)*100, d.params.PatternEveryMonths),
		})
	}
	da := cur.AdoptingFirmShare - prev.AdoptingFirmShare
	if da > d.params.AdoptionCascadeJump {
		out = append(out, Pattern{
			Month: cur.Month, Kind: PatternAdoptionCascade,
			From: prev.AdoptingFirmShare, To: cur.AdoptingFirmShare, Delta: da,
			Description: fmt.Sprintf("adopting firm share jumped %.1f points in %d months", da*100, d.params.PatternEveryMonths),
		})
	}
	d.found = append(d.found, out...)
	return out
}

func (d *Detector) at(series []MonthStats, month int) (MonthStats, bool) {
	if month <= d.baseline.Month {
		return d.baseline, true
	}
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Month == month {
			return series[i], true
		}
	}
	return MonthStats{}, false
}
