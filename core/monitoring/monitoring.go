package monitoring

import (
	"strconv"
	"time"
)

// Monitor reports run failures to an error tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Breadcrumb records a step that is attached to the next captured error.
	Breadcrumb(category, message string, data map[string]any)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Breadcrumb(string, string, map[string]any) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil && err != nil {
		current.CaptureException(err, tags)
	}
}

// CaptureRunFailure reports a failed per-bus run tagged with the bus number
// and the stage that failed.
func CaptureRunFailure(err error, bus int, stage string) {
	CaptureException(err, map[string]string{
		"bus":   strconv.Itoa(bus),
		"stage": stage,
	})
}

// StageDone leaves a breadcrumb for a completed stage of a bus run.
func StageDone(bus int, stage string, data map[string]any) {
	if current == nil {
		return
	}
	current.Breadcrumb("run", "bus "+strconv.Itoa(bus)+" "+stage+" done", data)
}

// Recover captures panics in goroutines.
func Recover() {
	if current != nil {
		current.Recover()
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}
