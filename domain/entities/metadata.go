package entities

import "time"

// RunMetadata stamps a load with its engine and wall-clock window.
type RunMetadata struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Engine    string        `json:"engine"`
	Duration  time.Duration `json:"duration_ns"`
}

// NewRunMetadata records a run of engine from start to end.
func NewRunMetadata(engine string, start, end time.Time) *RunMetadata {
	return &RunMetadata{
		StartTime: start,
		EndTime:   end,
		Engine:    engine,
		Duration:  end.Sub(start),
	}
}
