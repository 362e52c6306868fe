package driver

import (
	"fmt"
	"time"

	"github.com/kilianp07/lddl/core/model"
)

// Engine operations named in errors.
const (
	OpLoadIDs   = "load_ids"
	OpAdvance   = "advance"
	OpSetLoad   = "set_load"
	OpQueryLoad = "query_load"
	OpChannels  = "channels"
)

// NoLoadAtBusError reports that the target bus has no load to perturb, or
// not the configured one.
type NoLoadAtBusError struct {
	Bus int
	ID  string
}

func (e *NoLoadAtBusError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("no load %q at bus %d", e.ID, e.Bus)
	}
	return fmt.Sprintf("no load at bus %d", e.Bus)
}

// SimulationControlError reports a nonzero engine status. Breakpoint is the
// index of the breakpoint being applied, or -1 outside the breakpoint loop.
// At is the offending breakpoint: the one being applied, or the first one
// for the flat pre-run and the base load query. It is zero for calls made
// before scheduling and for the final channel collection.
type SimulationControlError struct {
	Op         string
	Breakpoint int
	At         model.Breakpoint
	Status     int
}

func (e *SimulationControlError) Error() string {
	if e.Breakpoint < 0 {
		return fmt.Sprintf("simulator %s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("simulator %s failed at breakpoint %d (t=%gs, %g MW) with status %d",
		e.Op, e.Breakpoint, e.At.TimeS, e.At.SetpointMW, e.Status)
}

// SimulationTimeoutError reports an engine call that did not return in time.
type SimulationTimeoutError struct {
	Op         string
	Breakpoint int
	At         model.Breakpoint
	Timeout    time.Duration
}

func (e *SimulationTimeoutError) Error() string {
	return fmt.Sprintf("simulator %s timed out after %s (breakpoint %d)", e.Op, e.Timeout, e.Breakpoint)
}
