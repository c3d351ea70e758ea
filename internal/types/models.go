// internal/types/models.go
package types

import (
	"time"
)

// ReportFile is a generated artifact discovered on disk. It is never
// tracked in memory across requests; every lookup is a fresh scan.
type ReportFile struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"filepath"`
	SessionID SessionID `json:"session_id,omitempty"`
	ModTime   time.Time `json:"-"`
}

// ExecutionContext is the opaque result of one engine run. The engine's
// real structure lives on its side of the process boundary; the service
// only relays the textual output and exit metadata.
type ExecutionContext struct {
	Query    string
	Output   string
	Duration time.Duration
}

// FormData is a validated-but-untyped goal form as submitted by the
// browser. Field presence depends on the goal type; the form package
// owns the per-goal validation rules.
type FormData map[string]any

// GoalType returns the form's goal_type field, or "" if absent.
func (f FormData) GoalType() string {
	s, _ := f["goal_type"].(string)
	return s
}

// Number reads a numeric field, tolerating the int/float64 ambiguity of
// decoded JSON. Returns 0, false if the field is absent or non-numeric.
func (f FormData) Number(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
