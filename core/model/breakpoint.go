package model

// Breakpoint is a simulation time at which the perturbing load setpoint
// changes. The setpoint holds until the next breakpoint.
type Breakpoint struct {
	TimeS      float64 `json:"time_s"`
	SetpointMW float64 `json:"setpoint_mw"`
}

// LoadTarget identifies the perturbed load element.
type LoadTarget struct {
	Bus int    `json:"bus" yaml:"bus"`
	ID  string `json:"id" yaml:"id"` // empty selects the first load at the bus
	// ReactiveMVAr is applied unchanged with every active setpoint.
	ReactiveMVAr float64 `json:"reactive_mvar" yaml:"reactive_mvar"`
}

// SimulationCursor tracks the simulated time reached by a run and the base
// load resolved before the first perturbation.
type SimulationCursor struct {
	CurrentTimeS float64
	BaseLoadMW   float64
}
