package model

// SignalKind classifies a monitored channel for oscillation analysis.
type SignalKind int

const (
	KindGenerator SignalKind = iota
	KindLoad
	KindTieLine
)

// Kinds lists the analysed categories in report order.
var Kinds = []SignalKind{KindGenerator, KindLoad, KindTieLine}

// String returns the lowercase category name.
func (k SignalKind) String() string {
	switch k {
	case KindGenerator:
		return "generator"
	case KindLoad:
		return "load"
	case KindTieLine:
		return "tie_line"
	default:
		return "unknown"
	}
}

// Label returns the category title used in summaries.
func (k SignalKind) Label() string {
	switch k {
	case KindGenerator:
		return "Generator Injections"
	case KindLoad:
		return "Load Injections"
	case KindTieLine:
		return "Tie-line flows"
	default:
		return "Unknown"
	}
}

// SignalSeries is one channel in megawatts. Time is shared between the
// series of a table and must not be modified.
type SignalSeries struct {
	Name    string
	Kind    SignalKind
	Bus     int // generator or load bus
	FromBus int // tie-line endpoints
	ToBus   int
	ID      string // machine or load identifier when present in the name
	Time    []float64
	Value   []float64
}

// Buses returns the buses the element is attached to.
func (s SignalSeries) Buses() []int {
	if s.Kind == KindTieLine {
		return []int{s.FromBus, s.ToBus}
	}
	return []int{s.Bus}
}

// OscillationResult is the maximum per-cycle peak-to-peak swing of a signal.
type OscillationResult struct {
	Name        string     `json:"name"`
	Kind        SignalKind `json:"kind"`
	Bus         int        `json:"bus,omitempty"`
	FromBus     int        `json:"from_bus,omitempty"`
	ToBus       int        `json:"to_bus,omitempty"`
	AmplitudeMW float64    `json:"amplitude_mw"`
}

// Buses returns the buses the element is attached to.
func (r OscillationResult) Buses() []int {
	if r.Kind == KindTieLine {
		return []int{r.FromBus, r.ToBus}
	}
	return []int{r.Bus}
}
