package engine

import "fmt"

// ConfigError reports a scenario rejected before any month ran.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// InvariantError is a fatal consistency violation detected after a month.
type InvariantError struct {
	Month int
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at month %d: %s", e.Month, e.Msg)
}

// TickError aborts a run. LastComplete is the last month whose results
// were recorded; nothing from Month itself is reported.
type TickError struct {
	Month        int
	LastComplete int
	Err          error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("month %d failed (last complete %d): %v", e.Month, e.LastComplete, e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }
