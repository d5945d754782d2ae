package entities

import "time"

// SkippedModule is a module left out of a load run in FailSkip mode.
type SkippedModule struct {
	Path  string       `json:"path"`
	Error *ErrorDetail `json:"error"`
}

// LoadReport summarizes one namespace tree load.
type LoadReport struct {
	Root       string          `json:"root"`
	Namespaces int             `json:"namespaces"`
	Factories  int             `json:"factories"`
	Filtered   []string        `json:"filtered,omitempty"`
	Skipped    []SkippedModule `json:"skipped,omitempty"`
	Metadata   *RunMetadata    `json:"metadata,omitempty"`
}

// InstanceFailure is an update hook that threw during a tick.
type InstanceFailure struct {
	Instance string       `json:"instance"`
	Error    *ErrorDetail `json:"error"`
}

// TickReport summarizes one Driver tick.
type TickReport struct {
	Frame    uint64            `json:"frame"`
	Driven   int               `json:"driven"`
	Skipped  int               `json:"skipped"`
	Failures []InstanceFailure `json:"failures,omitempty"`
	Duration time.Duration     `json:"duration_ns"`
}

// OK reports whether every driven instance completed its update.
func (r TickReport) OK() bool {
	return len(r.Failures) == 0
}
