package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/infra/simulator/synthetic"
)

// FaultDef injects an engine status on one call of an operation.
type FaultDef struct {
	Op     string `yaml:"op"`
	Call   int    `yaml:"call"`
	Status int    `yaml:"status"`
}

func (f FaultDef) ToModel() synthetic.Fault {
	return synthetic.Fault{Op: f.Op, Call: f.Call, Status: f.Status}
}

// Expected is the outcome checked after the run. Error is one of "",
// "config", "no_load" or "control".
type Expected struct {
	Breakpoints   int    `yaml:"breakpoints"`
	Error         string `yaml:"error"`
	MinGenerators int    `yaml:"min_generators"`
	MinLines      int    `yaml:"min_lines"`
}

type Scenario struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Bus         int                  `yaml:"bus"`
	LoadID      string               `yaml:"load_id,omitempty"`
	StepS       float64              `yaml:"step_s"`
	ThresholdMW float64              `yaml:"threshold_mw"`
	Waveform    model.ScenarioConfig `yaml:"waveform"`
	Faults      []FaultDef           `yaml:"faults,omitempty"`
	Expected    Expected             `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// engineConfig builds the synthetic engine settings of the scenario.
func (sc Scenario) engineConfig() synthetic.Config {
	cfg := synthetic.Config{StepS: sc.StepS}
	for _, f := range sc.Faults {
		cfg.Faults = append(cfg.Faults, f.ToModel())
	}
	return cfg
}
