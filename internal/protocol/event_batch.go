package protocol

// EVENT_BATCH_REQ (client -> server): media events delivered after a cursor.
type EventBatchReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	SinceCursor     uint64 `json:"since_cursor"`
	Limit           int    `json:"limit"`
}

type MediaEvent struct {
	Month     int     `json:"month"`
	Kind      string  `json:"kind"`
	Magnitude float64 `json:"magnitude"`
	Region    int     `json:"region"`
	Policy    string  `json:"policy,omitempty"`
	Reached   int     `json:"reached"`
}

// Cursor values start at 1; cursor N is the Nth delivered event.
type EventBatchItem struct {
	Cursor uint64     `json:"cursor"`
	Event  MediaEvent `json:"event"`
}

// EVENT_BATCH (server -> client)
type EventBatchMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	ReqID           string           `json:"req_id"`
	Events          []EventBatchItem `json:"events"`
	NextCursor      uint64           `json:"next_cursor"`
}
