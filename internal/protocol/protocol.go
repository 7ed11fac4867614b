package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeWelcome       = "WELCOME"
	TypeProgress      = "PROGRESS"
	TypeStatus        = "STATUS"
	TypeControl       = "CONTROL"
	TypeAck           = "ACK"
	TypeEventBatchReq = "EVENT_BATCH_REQ"
	TypeEventBatch    = "EVENT_BATCH"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
