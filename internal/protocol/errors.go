package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Run control.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownAction = "E_UNKNOWN_ACTION"
	ErrNotRunning    = "E_NOT_RUNNING"
	ErrRunFinished   = "E_RUN_FINISHED"
	ErrConflict      = "E_CONFLICT"

	// Queries.
	ErrNotFound = "E_NOT_FOUND"
	ErrStale    = "E_STALE"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownAction:   {},
	ErrNotRunning:      {},
	ErrRunFinished:     {},
	ErrConflict:        {},
	ErrNotFound:        {},
	ErrStale:           {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrorBody is the JSON body of every non-2xx HTTP response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
