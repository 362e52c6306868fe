package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/lddl/core/driver"
	"github.com/kilianp07/lddl/core/factory"
	"github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/runlog"
)

// EnvPrefix prefixes environment overrides. LDDL_TARGET__LOAD_ID sets
// target.load_id.
const EnvPrefix = "LDDL_"

type Config struct {
	Scenario  model.ScenarioConfig `json:"scenario"`
	Target    TargetConfig         `json:"target"`
	Analysis  AnalysisConfig       `json:"analysis"`
	Files     FilesConfig          `json:"files"`
	Simulator factory.ModuleConfig `json:"simulator"`
	Driver    driver.Config        `json:"driver"`
	Metrics   metrics.Config       `json:"metrics"`
	RunLog    runlog.Config        `json:"run_log"`
	Sentry    SentryConfig         `json:"sentry"`
}

// Load reads a YAML or JSON file, applies LDDL_ environment overrides, fills
// defaults and validates the result. An empty path loads defaults and the
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	return decode(k)
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	if c.Scenario == (model.ScenarioConfig{}) {
		c.Scenario = DefaultScenario()
	}
	c.Scenario = c.Scenario.Normalized()
	c.Analysis.SetDefaults()
	c.Files.SetDefaults()
	if c.Simulator.Type == "" {
		c.Simulator.Type = "synthetic"
	}
	if len(c.Metrics.Sinks) == 0 {
		c.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	}
	setRunLogDefaults(&c.RunLog)
}

// Validate runs the struct tag rules and the scenario checks.
func (c Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if err := c.Scenario.Validate(); err != nil {
		return err
	}
	if c.Driver.StepTimeout < 0 {
		return fmt.Errorf("invalid config: driver.step_timeout must be >= 0")
	}
	return nil
}

// DefaultScenario is a one hertz square wave of 100 MW from 2 s to 30 s.
func DefaultScenario() model.ScenarioConfig {
	return model.ScenarioConfig{
		Shape:         model.ShapeMonoPeriodic,
		FreqPrimaryHz: 1,
		AmplitudeMW:   100,
		StartTimeS:    2,
		StopTimeS:     30,
		DutyCycle:     model.DefaultDutyCycle,
	}
}
