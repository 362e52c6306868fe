package metrics

import (
	"time"

	"github.com/kilianp07/lddl/core/model"
)

// StepEvent is emitted each time a breakpoint setpoint is applied.
type StepEvent struct {
	RunID      string
	Bus        int
	Shape      model.Shape
	Index      int
	TimeS      float64
	SetpointMW float64
	AppliedMW  float64
	// Duration is the wall time spent advancing to the next breakpoint.
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records breakpoint steps for observability purposes.
type MetricsSink interface {
	RecordStep(ev StepEvent) error
}

// RunEvent summarizes a finished perturbation run.
type RunEvent struct {
	RunID       string
	Bus         int
	Shape       model.Shape
	Breakpoints int
	BaseLoadMW  float64
	FinalTimeS  float64
	Success     bool
	Error       string
	Duration    time.Duration
	Time        time.Time
}

// RunRecorder records run outcomes.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// OscillationEvent summarizes the oscillations found in one category.
type OscillationEvent struct {
	RunID          string
	SourceBus      int
	Kind           model.SignalKind
	Signals        int
	Exceedances    int
	InSourceZone   int
	MaxAmplitudeMW float64
	Time           time.Time
}

// OscillationRecorder records oscillation findings.
type OscillationRecorder interface {
	RecordOscillation(evs []OscillationEvent) error
}

// ProgressEvent mirrors one driver lifecycle event.
type ProgressEvent struct {
	RunID string
	Bus   int
	Shape string
	Stage string
	Index int
	Total int
	TimeS float64
	Error string
	Time  time.Time
}

// ProgressRecorder records run progress as it happens.
type ProgressRecorder interface {
	RecordProgress(ev ProgressEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error                 { return nil }
func (NopSink) RecordRun(RunEvent) error                   { return nil }
func (NopSink) RecordOscillation([]OscillationEvent) error { return nil }
func (NopSink) RecordProgress(ProgressEvent) error         { return nil }
