package config

import "github.com/kilianp07/lddl/core/network"

// TargetConfig lists the buses receiving the perturbing load, one run each.
type TargetConfig struct {
	Buses []int `json:"buses" validate:"dive,gt=0"`
	// LoadID selects the load at every target bus. Empty takes the first one.
	LoadID       string  `json:"load_id"`
	ReactiveMVAr float64 `json:"reactive_mvar"`
}

// AnalysisConfig tunes the impact ranking and the element selection.
type AnalysisConfig struct {
	ThresholdMW float64 `json:"threshold_mw" validate:"gt=0"`
	// BusFile is the bus table with zones, areas and coordinates. Empty uses
	// the engine network when it exposes one.
	BusFile    string             `json:"bus_file"`
	Thresholds network.Thresholds `json:"thresholds"`
}

// DefaultThresholdMW is the peak-to-peak amplitude above which an element
// counts as impacted.
const DefaultThresholdMW = 20.0

func (c *AnalysisConfig) SetDefaults() {
	if c.ThresholdMW == 0 {
		c.ThresholdMW = DefaultThresholdMW
	}
	if c.Thresholds == (network.Thresholds{}) {
		c.Thresholds = network.DefaultThresholds()
	}
}

// FilesConfig locates the run outputs.
type FilesConfig struct {
	OutputDir string `json:"output_dir"`
	SkipPlots bool   `json:"skip_plots"`
}

func (c *FilesConfig) SetDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "results"
	}
}
