package protocol

// WELCOME (server -> client), sent once when a progress stream opens.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Scenario        string `json:"scenario"`
	Seed            int64  `json:"seed"`
	Status          string `json:"status"`
	Month           int    `json:"month"`
	TotalMonths     int    `json:"total_months"`
	Workers         int    `json:"workers"`
	Firms           int    `json:"firms"`
	Regions         int    `json:"regions"`
}

// PROGRESS (server -> client), one per completed month.
type ProgressMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	RunID           string       `json:"run_id"`
	Month           int          `json:"month"`
	TotalMonths     int          `json:"total_months"`
	Progress        float64      `json:"progress"`
	Stats           MonthSummary `json:"stats"`
	Patterns        []PatternRef `json:"patterns,omitempty"`
	EventCursor     uint64       `json:"event_cursor"`
}

// MonthSummary is the subset of monthly statistics streamed to clients.
type MonthSummary struct {
	UnemploymentRate  float64            `json:"unemployment_rate"`
	Employed          int                `json:"employed"`
	Unemployed        int                `json:"unemployed"`
	Retraining        int                `json:"retraining"`
	OutOfLaborForce   int                `json:"out_of_labor_force"`
	Hires             int                `json:"hires"`
	Layoffs           int                `json:"layoffs"`
	MedianWage        float64            `json:"median_wage"`
	WageGini          float64            `json:"wage_gini"`
	AdoptingFirmShare float64            `json:"adopting_firm_share"`
	FrontierLevel     float64            `json:"frontier_level"`
	MeanAnxiety       float64            `json:"mean_anxiety"`
	PolicySupport     map[string]float64 `json:"policy_support,omitempty"`
	Digest            string             `json:"digest,omitempty"`
}

type PatternRef struct {
	Kind        string  `json:"kind"`
	Month       int     `json:"month"`
	Delta       float64 `json:"delta"`
	Description string  `json:"description"`
}

// STATUS (server -> client) on pause, resume, stop, completion or failure.
type StatusMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
	Status          string `json:"status"`
	Month           int    `json:"month"`
	Error           string `json:"error,omitempty"`
}

// Control actions.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStop   = "stop"
)

// CONTROL (client -> server). Over HTTP the type and version may be
// omitted.
type ControlMsg struct {
	Type            string `json:"type,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
	Action          string `json:"action"`
}

// ACK (server -> client) answers a CONTROL or a malformed request.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for,omitempty"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Status          string `json:"status,omitempty"`
	Month           int    `json:"month"`
}
