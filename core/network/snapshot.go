package network

// Machine is a generating unit with its scheduled active power.
type Machine struct {
	Bus    int     `json:"bus"`
	ID     string  `json:"id"`
	PGenMW float64 `json:"pgen_mw"`
}

// Load is a load with its total active power.
type Load struct {
	Bus   int     `json:"bus"`
	ID    string  `json:"id"`
	PLoad float64 `json:"pload_mw"`
}

// Branch is a line or transformer between two buses.
type Branch struct {
	FromBus int    `json:"from_bus"`
	ToBus   int    `json:"to_bus"`
	Circuit string `json:"circuit"`
}

// Snapshot is the static view of a network case as reported by an engine.
type Snapshot struct {
	Buses    []Bus     `json:"buses"`
	Machines []Machine `json:"machines"`
	Loads    []Load    `json:"loads"`
	Branches []Branch  `json:"branches"`
}
