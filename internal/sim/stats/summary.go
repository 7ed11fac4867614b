package stats

// Summary condenses a finished (or aborted) run.
type Summary struct {
	Months int `json:"months"`

	InitialUnemployment float64 `json:"initial_unemployment"`
	FinalUnemployment   float64 `json:"final_unemployment"`
	PeakUnemployment    float64 `json:"peak_unemployment"`
	PeakMonth           int     `json:"peak_month"`

	InitialMedianWage float64 `json:"initial_median_wage"`
	FinalMedianWage   float64 `json:"final_median_wage"`
	InitialGini       float64 `json:"initial_gini"`
	FinalGini         float64 `json:"final_gini"`

	InitialAdoptingShare float64 `json:"initial_adopting_share"`
	FinalAdoptingShare   float64 `json:"final_adopting_share"`
	FinalFrontierLevel   float64 `json:"final_frontier_level"`

	TotalHires     int `json:"total_hires"`
	TotalLayoffs   int `json:"total_layoffs"`
	TotalGraduates int `json:"total_graduates"`
	TotalDropouts  int `json:"total_dropouts"`

	FinalPolicySupport map[string]float64 `json:"final_policy_support"`
	Patterns           []Pattern          `json:"patterns"`
}

// Summarize derives the summary from the month-0 baseline and the series.
func Summarize(baseline MonthStats, series []MonthStats, patterns []Pattern) Summary {
	s := Summary{
		Months:               len(series),
		InitialUnemployment:  baseline.UnemploymentRate,
		FinalUnemployment:    baseline.UnemploymentRate,
		PeakUnemployment:     baseline.UnemploymentRate,
		PeakMonth:            baseline.Month,
		InitialMedianWage:    baseline.MedianWage,
		FinalMedianWage:      baseline.MedianWage,
		InitialGini:          baseline.WageGini,
		FinalGini:            baseline.WageGini,
		InitialAdoptingShare: baseline.AdoptingFirmShare,
		FinalAdoptingShare:   baseline.AdoptingFirmShare,
		FinalFrontierLevel:   baseline.FrontierLevel,
		FinalPolicySupport:   baseline.PolicySupportMean,
		Patterns:             append([]Pattern{}, patterns...),
	}
	for _, m := range series {
		s.TotalHires += m.Hires
		s.TotalLayoffs += m.Layoffs
		s.TotalGraduates += m.Training.Graduates
		s.TotalDropouts += m.Training.Dropouts
		if m.UnemploymentRate > s.PeakUnemployment {
			s.PeakUnemployment = m.UnemploymentRate
			s.PeakMonth = m.Month
		}
	}
	if n := len(series); n > 0 {
		last := series[n-1]
		s.FinalUnemployment = last.UnemploymentRate
		s.FinalMedianWage = last.MedianWage
		s.FinalGini = last.WageGini
		s.FinalAdoptingShare = last.AdoptingFirmShare
		s.FinalFrontierLevel = last.FrontierLevel
		s.FinalPolicySupport = last.PolicySupportMean
	}
	return s
}
