package scenario

import (
	"fmt"
	"strings"
)

const (
	CurveLinear      = "linear"
	CurveExponential = "exponential"
	CurveSCurve      = "s_curve"
	CurveStep        = "step"

	PaceSlow         = "slow"
	PaceModerate     = "moderate"
	PaceFast         = "fast"
	PaceAccelerating = "accelerating"

	InterventionUBI         = "ubi"
	InterventionRetraining  = "retraining"
	InterventionWageSubsidy = "wage_subsidy"
)

type Scenario struct {
	Name string `yaml:"name" json:"name"`
	Seed int64  `yaml:"seed" json:"seed"`

	DurationMonths int `yaml:"durationMonths" json:"durationMonths"`

	InitialUnemploymentRate float64 `yaml:"initialUnemploymentRate" json:"initialUnemploymentRate"`
	InitialAIAdoption       float64 `yaml:"initialAIAdoption" json:"initialAIAdoption"`
	AdoptionCurve           string  `yaml:"adoptionCurve" json:"adoptionCurve"`
	AutomationPace          string  `yaml:"automationPace" json:"automationPace"`
	TrainingSubsidy         float64 `yaml:"trainingSubsidy" json:"trainingSubsidy"`

	NumWorkers          int `yaml:"numWorkers" json:"numWorkers"`
	NumFirms            int `yaml:"numFirms" json:"numFirms"`
	NumRegions          int `yaml:"numRegions" json:"numRegions"`
	NumTrainingPrograms int `yaml:"numTrainingPrograms" json:"numTrainingPrograms"`

	Interventions []Intervention          `yaml:"interventions,omitempty" json:"interventions,omitempty"`
	Breakthroughs []ScheduledBreakthrough `yaml:"breakthroughs,omitempty" json:"breakthroughs,omitempty"`
	Market        MarketParams            `yaml:"market" json:"market"`
	Wages         WageParams              `yaml:"wages" json:"wages"`
	Analysis      AnalysisParams          `yaml:"analysis" json:"analysis"`
}

// Intervention is applied every month while Active and inside the optional
// [StartMonth, EndMonth] window (EndMonth 0 = open ended).
type Intervention struct {
	Type       string         `yaml:"type" json:"type"`
	Active     bool           `yaml:"active" json:"active"`
	StartMonth int            `yaml:"startMonth,omitempty" json:"startMonth,omitempty"`
	EndMonth   int            `yaml:"endMonth,omitempty" json:"endMonth,omitempty"`
	Params     map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

func (iv Intervention) ActiveAt(month int) bool {
	if !iv.Active {
		return false
	}
	if iv.StartMonth > 0 && month < iv.StartMonth {
		return false
	}
	if iv.EndMonth > 0 && month > iv.EndMonth {
		return false
	}
	return true
}

func (iv Intervention) Float(key string, def float64) float64 {
	switch v := iv.Params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return def
}

func (iv Intervention) Bool(key string, def bool) bool {
	if v, ok := iv.Params[key].(bool); ok {
		return v
	}
	return def
}

func (iv Intervention) Strings(key string) []string {
	switch v := iv.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

type ScheduledBreakthrough struct {
	Month     int     `yaml:"month" json:"month"`
	Magnitude float64 `yaml:"magnitude" json:"magnitude"`
}

// MarketParams are the matching engine's sampling caps.
type MarketParams struct {
	MaxSearchers      int `yaml:"maxSearchers" json:"maxSearchers"`
	MaxCandidates     int `yaml:"maxCandidates" json:"maxCandidates"`
	MaxVisibleJobs    int `yaml:"maxVisibleJobs" json:"maxVisibleJobs"`
	MaxApplications   int `yaml:"maxApplications" json:"maxApplications"`
	OffersPerPosting  int `yaml:"offersPerPosting" json:"offersPerPosting"`
	DesperationMonths int `yaml:"desperationMonths" json:"desperationMonths"`
}

type WageParams struct {
	MinimumWage        float64 `yaml:"minimumWage" json:"minimumWage"`
	NationalMedianWage float64 `yaml:"nationalMedianWage" json:"nationalMedianWage"`
	MaxMonthlyDelta    float64 `yaml:"maxMonthlyDelta" json:"maxMonthlyDelta"`
	AIPremium          float64 `yaml:"aiPremium" json:"aiPremium"`
	AutomationDiscount float64 `yaml:"automationDiscount" json:"automationDiscount"`
}

type AnalysisParams struct {
	PatternEveryMonths  int     `yaml:"patternEveryMonths" json:"patternEveryMonths"`
	RegionSnapshotEvery int     `yaml:"regionSnapshotEvery" json:"regionSnapshotEvery"`
	TippingPointDelta   float64 `yaml:"tippingPointDelta" json:"tippingPointDelta"`
	AdoptionCascadeJump float64 `yaml:"adoptionCascadeJump" json:"adoptionCascadeJump"`
}

func Defaults() Scenario {
	return Scenario{
		Name:                    "baseline",
		DurationMonths:          60,
		InitialUnemploymentRate: 0.05,
		InitialAIAdoption:       0.1,
		AdoptionCurve:           CurveSCurve,
		AutomationPace:          PaceModerate,
		TrainingSubsidy:         0,
		NumWorkers:              10000,
		NumFirms:                500,
		NumRegions:              5,
		NumTrainingPrograms:     20,
		Market: MarketParams{
			MaxSearchers:      500,
			MaxCandidates:     100,
			MaxVisibleJobs:    20,
			MaxApplications:   8,
			OffersPerPosting:  3,
			DesperationMonths: 6,
		},
		Wages: WageParams{
			MinimumWage:        15080,
			NationalMedianWage: 52000,
			MaxMonthlyDelta:    0.01,
			AIPremium:          0.15,
			AutomationDiscount: 0.2,
		},
		Analysis: AnalysisParams{
			PatternEveryMonths:  6,
			RegionSnapshotEvery: 6,
			TippingPointDelta:   0.02,
			AdoptionCascadeJump: 0.10,
		},
	}
}

// Normalize fills zero-valued tunables from Defaults. Population sizes and
// rates are left alone so Validate can reject them.
func (s *Scenario) Normalize() {
	if s == nil {
		return
	}
	d := Defaults()
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = d.Name
	}
	s.AdoptionCurve = strings.ToLower(strings.TrimSpace(s.AdoptionCurve))
	if s.AdoptionCurve == "" {
		s.AdoptionCurve = d.AdoptionCurve
	}
	s.AutomationPace = strings.ToLower(strings.TrimSpace(s.AutomationPace))
	if s.AutomationPace == "" {
		s.AutomationPace = d.AutomationPace
	}
	if s.NumRegions == 0 {
		s.NumRegions = d.NumRegions
	}
	m := &s.Market
	if m.MaxSearchers <= 0 {
		m.MaxSearchers = d.Market.MaxSearchers
	}
	if m.MaxCandidates <= 0 {
		m.MaxCandidates = d.Market.MaxCandidates
	}
	if m.MaxVisibleJobs <= 0 {
		m.MaxVisibleJobs = d.Market.MaxVisibleJobs
	}
	if m.MaxApplications <= 0 {
		m.MaxApplications = d.Market.MaxApplications
	}
	if m.OffersPerPosting <= 0 {
		m.OffersPerPosting = d.Market.OffersPerPosting
	}
	if m.DesperationMonths <= 0 {
		m.DesperationMonths = d.Market.DesperationMonths
	}
	w := &s.Wages
	if w.MinimumWage <= 0 {
		w.MinimumWage = d.Wages.MinimumWage
	}
	if w.NationalMedianWage <= 0 {
		w.NationalMedianWage = d.Wages.NationalMedianWage
	}
	if w.MaxMonthlyDelta <= 0 {
		w.MaxMonthlyDelta = d.Wages.MaxMonthlyDelta
	}
	if w.AIPremium <= 0 {
		w.AIPremium = d.Wages.AIPremium
	}
	if w.AutomationDiscount <= 0 {
		w.AutomationDiscount = d.Wages.AutomationDiscount
	}
	a := &s.Analysis
	if a.PatternEveryMonths <= 0 {
		a.PatternEveryMonths = d.Analysis.PatternEveryMonths
	}
	if a.RegionSnapshotEvery <= 0 {
		a.RegionSnapshotEvery = d.Analysis.RegionSnapshotEvery
	}
	if a.TippingPointDelta <= 0 {
		a.TippingPointDelta = d.Analysis.TippingPointDelta
	}
	if a.AdoptionCascadeJump <= 0 {
		a.AdoptionCascadeJump = d.Analysis.AdoptionCascadeJump
	}
	for i := range s.Interventions {
		s.Interventions[i].Type = strings.ToLower(strings.TrimSpace(s.Interventions[i].Type))
	}
}

// FieldError names the offending scenario field.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string { return fmt.Sprintf("scenario: %s: %s", e.Field, e.Msg) }

func (s Scenario) Validate() error {
	bad := func(field, format string, args ...any) error {
		return &FieldError{Field: field, Msg: fmt.Sprintf(format, args...)}
	}
	if s.DurationMonths <= 0 {
		return bad("durationMonths", "must be > 0, got %d", s.DurationMonths)
	}
	if s.NumWorkers <= 0 {
		return bad("numWorkers", "must be > 0, got %d", s.NumWorkers)
	}
	if s.NumFirms < 0 {
		return bad("numFirms", "must be >= 0, got %d", s.NumFirms)
	}
	if s.NumRegions <= 0 {
		return bad("numRegions", "must be > 0, got %d", s.NumRegions)
	}
	if s.NumTrainingPrograms < 0 {
		return bad("numTrainingPrograms", "must be >= 0, got %d", s.NumTrainingPrograms)
	}
	if s.InitialUnemploymentRate < 0 || s.InitialUnemploymentRate > 1 {
		return bad("initialUnemploymentRate", "must be in [0,1], got %v", s.InitialUnemploymentRate)
	}
	if s.InitialAIAdoption < 0 || s.InitialAIAdoption > 1 {
		return bad("initialAIAdoption", "must be in [0,1], got %v", s.InitialAIAdoption)
	}
	if s.TrainingSubsidy < 0 || s.TrainingSubsidy > 1 {
		return bad("trainingSubsidy", "must be in [0,1], got %v", s.TrainingSubsidy)
	}
	switch s.AdoptionCurve {
	case CurveLinear, CurveExponential, CurveSCurve, CurveStep:
	default:
		return bad("adoptionCurve", "unknown curve %q", s.AdoptionCurve)
	}
	switch s.AutomationPace {
	case PaceSlow, PaceModerate, PaceFast, PaceAccelerating:
	default:
		return bad("automationPace", "unknown pace %q", s.AutomationPace)
	}
	for i, iv := range s.Interventions {
		field := fmt.Sprintf("interventions[%d]", i)
		switch iv.Type {
		case InterventionUBI:
			if iv.Float("amount", 0) < 0 {
				return bad(field+".params.amount", "must be >= 0")
			}
		case InterventionRetraining:
			if iv.Float("capacity", 0) < 0 || iv.Float("duration", 0) < 0 {
				return bad(field+".params", "capacity and duration must be >= 0")
			}
		case InterventionWageSubsidy:
			if iv.Float("amount", 0) < 0 {
				return bad(field+".params.amount", "must be >= 0")
			}
		default:
			return bad(field+".type", "unknown intervention %q", iv.Type)
		}
		if iv.EndMonth > 0 && iv.EndMonth < iv.StartMonth {
			return bad(field, "endMonth %d before startMonth %d", iv.EndMonth, iv.StartMonth)
		}
	}
	for i, b := range s.Breakthroughs {
		if b.Month <= 0 || b.Magnitude <= 0 || b.Magnitude > 1 {
			return bad(fmt.Sprintf("breakthroughs[%d]", i), "month must be > 0 and magnitude in (0,1]")
		}
	}
	if s.Wages.MinimumWage >= s.Wages.NationalMedianWage {
		return bad("wages.minimumWage", "must be below nationalMedianWage")
	}
	return nil
}
