package agents

import "laborsim.ai/internal/sim/catalogs"

// Posting is a vacancy owned by the firm that created it. Postings live for
// one month: the owning firm replaces its list at its next decision.
type Posting struct {
	ID             int
	FirmID         int
	OccupationID   string
	Industry       string
	RegionID       int
	Wage           float64
	Education      catalogs.Education
	RequiredSkills map[string]float64
	Exposure       float64
	WantsAI        bool
	Filled         bool
	Month          int
}
