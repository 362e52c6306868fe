package scheduler

import (
	"math"

	"github.com/kilianp07/lddl/core/model"
)

// TriangularSteps is the number of linear steps in each half of a
// triangular cycle.
const TriangularSteps = 25

// eps absorbs floating point error when counting whole periods.
const eps = 1e-9

type generator func(c model.ScenarioConfig) []model.Breakpoint

var generators = map[model.Shape]generator{
	model.ShapeMonoPeriodic: monoPeriodic,
	model.ShapeBiPeriodic:   biPeriodic,
	model.ShapeTriangular:   triangular,
}

// Schedule validates the scenario and returns its breakpoints. The first
// breakpoint is at StartTimeS and the last one at StopTimeS with a zero
// setpoint. A scenario too short for a single cycle yields only these two.
func Schedule(cfg model.ScenarioConfig) ([]model.Breakpoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Normalized()
	return finalize(generators[cfg.Shape](cfg), cfg), nil
}

// Cycles returns the number of whole primary cycles that fit between the
// start and stop times.
func Cycles(cfg model.ScenarioConfig) int {
	if cfg.FreqPrimaryHz <= 0 {
		return 0
	}
	return wholePeriods(cfg.StopTimeS-cfg.StartTimeS, 1/cfg.FreqPrimaryHz)
}

// SubCycles returns the number of secondary cycles emitted during the on
// part of each primary cycle of a bi-periodic scenario.
func SubCycles(cfg model.ScenarioConfig) int {
	if cfg.FreqPrimaryHz <= 0 || cfg.FreqSecondaryHz <= 0 {
		return 0
	}
	tp := 1 / cfg.FreqPrimaryHz
	ts := 1 / cfg.FreqSecondaryHz
	return int(math.Ceil(tp*cfg.Duty()/ts - eps))
}

func wholePeriods(span, period float64) int {
	n := int(math.Floor(span/period + eps))
	if n < 0 {
		return 0
	}
	return n
}

func monoPeriodic(c model.ScenarioConfig) []model.Breakpoint {
	period := 1 / c.FreqPrimaryHz
	on := period * c.Duty()
	n := Cycles(c)
	out := make([]model.Breakpoint, 0, 2*n)
	for i := 0; i < n; i++ {
		t := c.StartTimeS + float64(i)*period
		out = append(out,
			model.Breakpoint{TimeS: t, SetpointMW: c.AmplitudeMW},
			model.Breakpoint{TimeS: t + on, SetpointMW: 0},
		)
	}
	return out
}

func biPeriodic(c model.ScenarioConfig) []model.Breakpoint {
	tp := 1 / c.FreqPrimaryHz
	ts := 1 / c.FreqSecondaryHz
	off := tp * (1 - c.Duty())
	k := SubCycles(c)
	n := Cycles(c)
	out := make([]model.Breakpoint, 0, n*(2*k+1))
	start := c.StartTimeS
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			t := start + float64(j)*ts
			out = append(out,
				model.Breakpoint{TimeS: t, SetpointMW: c.AmplitudeMW},
				model.Breakpoint{TimeS: t + ts/2, SetpointMW: 0},
			)
		}
		// the off part uses the primary period
		t := start + float64(k)*ts
		out = append(out, model.Breakpoint{TimeS: t, SetpointMW: 0})
		start = t + off
	}
	return out
}

func triangular(c model.ScenarioConfig) []model.Breakpoint {
	half := (1 / c.FreqPrimaryHz) / 2
	step := half / TriangularSteps
	n := wholePeriods(c.StopTimeS-c.StartTimeS, 2*half)
	out := make([]model.Breakpoint, 0, n*2*TriangularSteps)
	for i := 0; i < n; i++ {
		t0 := c.StartTimeS + float64(i)*2*half
		for k := 1; k <= TriangularSteps; k++ {
			out = append(out, model.Breakpoint{
				TimeS:      t0 + float64(k-1)*step,
				SetpointMW: c.AmplitudeMW * float64(k) / TriangularSteps,
			})
		}
		for k := 1; k <= TriangularSteps; k++ {
			out = append(out, model.Breakpoint{
				TimeS:      t0 + half + float64(k-1)*step,
				SetpointMW: c.AmplitudeMW - c.AmplitudeMW*float64(k)/TriangularSteps,
			})
		}
	}
	return out
}

// finalize anchors the sequence on the start time, drops breakpoints at or
// beyond the stop time and appends the trailing flat run.
func finalize(bps []model.Breakpoint, c model.ScenarioConfig) []model.Breakpoint {
	out := make([]model.Breakpoint, 0, len(bps)+2)
	if len(bps) == 0 || bps[0].TimeS > c.StartTimeS+eps {
		out = append(out, model.Breakpoint{TimeS: c.StartTimeS, SetpointMW: 0})
	}
	for _, bp := range bps {
		if bp.TimeS >= c.StopTimeS-eps {
			break
		}
		if len(out) > 0 && bp.TimeS <= out[len(out)-1].TimeS {
			continue
		}
		out = append(out, bp)
	}
	return append(out, model.Breakpoint{TimeS: c.StopTimeS, SetpointMW: 0})
}
