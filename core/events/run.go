package events

import "time"

// Stage is the lifecycle step a RunEvent reports.
type Stage string

const (
	StageStarted    Stage = "started"
	StageBaseLoad   Stage = "base_load"
	StageBreakpoint Stage = "breakpoint"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// RunEvent is published by the driver while it plays a schedule.
type RunEvent struct {
	RunID string
	Bus   int
	Shape string
	Stage Stage
	// Index and Total locate the breakpoint for StageBreakpoint events.
	Index      int
	Total      int
	TimeS      float64
	SetpointMW float64
	BaseLoadMW float64
	Err        error
	Time       time.Time
}

// Done reports whether the event ends a run.
func (e RunEvent) Done() bool {
	return e.Stage == StageCompleted || e.Stage == StageFailed
}
