// Package stats aggregates the population into the monthly result series
// and the end-of-run summary.
package stats

import (
	"sort"

	"laborsim.ai/internal/sim/agents"
	"laborsim.ai/internal/sim/catalogs"
	"laborsim.ai/internal/sim/diffusion"
	"laborsim.ai/internal/sim/environment"
	"laborsim.ai/internal/sim/logic/mathx"
	"laborsim.ai/internal/sim/market"
)

type TrainingStats struct {
	Programs   int `json:"programs"`
	Capacity   int `json:"capacity"`
	Enrolled   int `json:"enrolled"`
	Waitlisted int `json:"waitlisted"`
	Graduates  int `json:"graduates"`
	Dropouts   int `json:"dropouts"`
	// Cumulative since the start of the run.
	TotalGraduates int     `json:"total_graduates"`
	TotalDropouts  int     `json:"total_dropouts"`
	CompletionRate float64 `json:"completion_rate"`
	PlacementRate  float64 `json:"placement_rate"`
}

// MonthStats is one entry of the result time series.
type MonthStats struct {
	Month int `json:"month"`

	TotalWorkers      int     `json:"total_workers"`
	Employed          int     `json:"employed"`
	Unemployed        int     `json:"unemployed"`
	Retraining        int     `json:"retraining"`
	OutOfLaborForce   int     `json:"out_of_labor_force"`
	LaborForce        int     `json:"labor_force"`
	UnemploymentRate  float64 `json:"unemployment_rate"`
	ParticipationRate float64 `json:"participation_rate"`

	Hires        int `json:"hires"`
	Layoffs      int `json:"layoffs"`
	JobToJob     int `json:"job_to_job"`
	OpenPostings int `json:"open_postings"`

	MeanWage   float64 `json:"mean_wage"`
	MedianWage float64 `json:"median_wage"`
	P10Wage    float64 `json:"p10_wage"`
	P90Wage    float64 `json:"p90_wage"`
	WageGini   float64 `json:"wage_gini"`
	AIPremium  float64 `json:"ai_premium"`

	AIStages          map[string]int `json:"ai_stages"`
	AdoptingFirmShare float64        `json:"adopting_firm_share"`
	MeanAutomation    float64        `json:"mean_automation"`
	FrontierLevel     float64        `json:"frontier_level"`
	Breakthroughs     int            `json:"breakthroughs"`

	PolicySupportMean   map[string]float64 `json:"policy_support_mean"`
	PolicySupportMedian map[string]float64 `json:"policy_support_median"`

	MeanAnxiety          float64 `json:"mean_anxiety"`
	MeanInfoLevel        float64 `json:"mean_info_level"`
	MeanDisplacementRisk float64 `json:"mean_displacement_risk"`
	MediaReached         int     `json:"media_reached"`

	Training TrainingStats `json:"training"`

	// Regions is filled on snapshot months only.
	Regions []environment.RegionSnapshot `json:"regions,omitempty"`
	// Digest is the state digest after the month.
	Digest string `json:"digest,omitempty"`
}

// Input gathers everything one month's statistics are derived from.
type Input struct {
	Month         int
	Pop           *agents.Population
	Market        market.Stats
	Match         market.MatchResult
	Wages         market.Analysis
	Frontier      *environment.Frontier
	Regions       *environment.RegionSystem
	WithRegions   bool
	Breakthroughs int
	Media         diffusion.Point
}

// Collect builds a MonthStats. It only reads its inputs.
func Collect(in Input) MonthStats {
	s := MonthStats{
		Month:            in.Month,
		TotalWorkers:     len(in.Pop.Workers),
		Employed:         in.Market.Employed,
		Unemployed:       in.Market.Unemployed,
		Retraining:       in.Market.Retraining,
		OutOfLaborForce:  in.Market.OutOfLaborForce,
		LaborForce:       in.Market.LaborForce,
		UnemploymentRate: in.Market.UnemploymentRate,
		Hires:            in.Match.Hires,
		Layoffs:          in.Match.Layoffs,
		JobToJob:         in.Match.JobToJob,
		OpenPostings:     in.Market.OpenPostings,
		MeanWage:         in.Wages.Mean,
		MedianWage:       in.Market.MedianWage,
		P10Wage:          in.Wages.P10,
		P90Wage:          in.Wages.P90,
		WageGini:         in.Wages.Gini,
		AIPremium:        in.Wages.AIPremium,
		Breakthroughs:    in.Breakthroughs,
		MediaReached:     in.Media.Reached,
		AIStages:         map[string]int{},
	}
	if s.TotalWorkers > 0 {
		s.ParticipationRate = float64(s.LaborForce+s.Retraining) / float64(s.TotalWorkers)
	}
	if in.Frontier != nil {
		s.FrontierLevel = in.Frontier.Level()
	}

	for st := agents.AINone; st < agents.NumAIStatuses; st++ {
		s.AIStages[st.String()] = 0
	}
	var adopting int
	var automation float64
	for _, f := range in.Pop.Firms {
		s.AIStages[f.AIStatus.String()]++
		if f.AIStatus.Adopting() {
			adopting++
		}
		automation += f.Automation
	}
	if n := len(in.Pop.Firms); n > 0 {
		s.AdoptingFirmShare = float64(adopting) / float64(n)
		s.MeanAutomation = automation / float64(n)
	}

	s.PolicySupportMean, s.PolicySupportMedian = policySupport(in.Pop.Workers)

	var anx, info, risk float64
	for _, w := range in.Pop.Workers {
		anx += w.Anxiety
		info += w.InfoLevel
		risk += w.DisplacementRisk
	}
	if n := float64(len(in.Pop.Workers)); n > 0 {
		s.MeanAnxiety = anx / n
		s.MeanInfoLevel = info / n
		s.MeanDisplacementRisk = risk / n
	}

	s.Training = training(in.Pop.Programs)
	if in.WithRegions && in.Regions != nil {
		s.Regions = in.Regions.Snapshots()
	}
	return s
}

func policySupport(workers []*agents.Worker) (map[string]float64, map[string]float64) {
	mean := make(map[string]float64, catalogs.NumPolicies)
	median := make(map[string]float64, catalogs.NumPolicies)
	vals := make([]float64, len(workers))
	for p, name := range catalogs.PolicyNames {
		for i, w := range workers {
			vals[i] = w.PolicySupport[p]
		}
		mean[name] = mathx.Mean(vals)
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		median[name] = mathx.Percentile(sorted, 50)
	}
	return mean, median
}

func training(programs []*agents.Program) TrainingStats {
	t := TrainingStats{Programs: len(programs)}
	var completion, placement float64
	for _, p := range programs {
		t.Capacity += p.MaxEnrollment
		t.Enrolled += p.Enrolled()
		t.Waitlisted += len(p.Waitlist)
		t.Graduates += p.GraduatesThisMonth
		t.Dropouts += p.DropoutsThisMonth
		t.TotalGraduates += p.Graduates
		t.TotalDropouts += p.Dropouts
		completion += p.CompletionRate
		placement += p.PlacementRate
	}
	if n := float64(len(programs)); n > 0 {
		t.CompletionRate = completion / n
		t.PlacementRate = placement / n
	}
	return t
}
