package model

import (
	"fmt"
	"math"
	"strings"
)

// Shape identifies the waveform family applied to the perturbing load.
type Shape string

const (
	ShapeMonoPeriodic Shape = "Mono-periodic"
	ShapeBiPeriodic   Shape = "Bi-periodic"
	ShapeTriangular   Shape = "Triangular"
)

// DefaultDutyCycle is the on-fraction used when a scenario leaves DutyCycle unset.
const DefaultDutyCycle = 0.5

// ParseShape accepts the canonical names as well as the short forms
// "mono", "bi" and "tri" (case-insensitive).
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mono-periodic", "mono", "monoperiodic", "1":
		return ShapeMonoPeriodic, nil
	case "bi-periodic", "bi", "biperiodic", "2":
		return ShapeBiPeriodic, nil
	case "triangular", "tri", "3":
		return ShapeTriangular, nil
	default:
		return "", fmt.Errorf("unknown waveform shape %q", s)
	}
}

// String returns the canonical shape name.
func (s Shape) String() string { return string(s) }

// ConfigError reports an invalid scenario parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid scenario: %s %s", e.Field, e.Reason)
}

// ScenarioConfig describes one perturbation waveform. It is validated once
// and treated as read-only afterwards.
type ScenarioConfig struct {
	Shape           Shape   `json:"shape" yaml:"shape"`
	FreqPrimaryHz   float64 `json:"freq_primary_hz" yaml:"freq_primary_hz"`
	FreqSecondaryHz float64 `json:"freq_secondary_hz" yaml:"freq_secondary_hz"`
	AmplitudeMW     float64 `json:"amplitude_mw" yaml:"amplitude_mw"`
	StartTimeS      float64 `json:"start_time_s" yaml:"start_time_s"`
	StopTimeS       float64 `json:"stop_time_s" yaml:"stop_time_s"`
	// DutyCycle is the on-fraction of the square envelopes. Zero means 0.5.
	DutyCycle float64 `json:"duty_cycle" yaml:"duty_cycle"`
	// AbsoluteSetpoints applies breakpoint setpoints as absolute load values
	// instead of offsets from the resolved base load.
	AbsoluteSetpoints bool `json:"absolute_setpoints" yaml:"absolute_setpoints"`
}

// Duty returns the effective duty cycle.
func (c ScenarioConfig) Duty() float64 {
	if c.DutyCycle == 0 {
		return DefaultDutyCycle
	}
	return c.DutyCycle
}

// Validate checks the parameter ranges and the frequency ordering of
// bi-periodic scenarios (slower primary, faster secondary).
func (c ScenarioConfig) Validate() error {
	if _, err := ParseShape(string(c.Shape)); err != nil {
		return &ConfigError{Field: "shape", Reason: err.Error()}
	}
	if !finitePositive(c.FreqPrimaryHz) {
		return &ConfigError{Field: "freq_primary_hz", Reason: "must be > 0"}
	}
	if c.AmplitudeMW < 0 || math.IsNaN(c.AmplitudeMW) || math.IsInf(c.AmplitudeMW, 0) {
		return &ConfigError{Field: "amplitude_mw", Reason: "must be >= 0"}
	}
	if c.StartTimeS < 0 || math.IsNaN(c.StartTimeS) {
		return &ConfigError{Field: "start_time_s", Reason: "must be >= 0"}
	}
	if !(c.StopTimeS > c.StartTimeS) || math.IsInf(c.StopTimeS, 0) {
		return &ConfigError{Field: "stop_time_s", Reason: "must be greater than start_time_s"}
	}
	if d := c.Duty(); !(d > 0 && d < 1) {
		return &ConfigError{Field: "duty_cycle", Reason: "must be within (0, 1)"}
	}
	shape, _ := ParseShape(string(c.Shape))
	if shape == ShapeBiPeriodic {
		if !finitePositive(c.FreqSecondaryHz) {
			return &ConfigError{Field: "freq_secondary_hz", Reason: "must be > 0 for Bi-periodic"}
		}
		if !(c.FreqPrimaryHz < c.FreqSecondaryHz) {
			return &ConfigError{Field: "freq_secondary_hz", Reason: "must exceed freq_primary_hz"}
		}
	}
	return nil
}

// Normalized returns a copy with the canonical shape name and the duty cycle
// filled in.
func (c ScenarioConfig) Normalized() ScenarioConfig {
	if s, err := ParseShape(string(c.Shape)); err == nil {
		c.Shape = s
	}
	c.DutyCycle = c.Duty()
	return c
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}
