// Package oscillation measures the oscillation amplitude of signal series as
// the largest peak-to-peak swing found in any one perturbation cycle.
package oscillation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/model"
)

// InsufficientSamplesError reports a window shorter than one cycle.
type InsufficientSamplesError struct {
	Samples         int
	SamplesPerCycle int
	FrequencyHz     float64
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("not enough samples for one full cycle at %g Hz: %d samples, %d per cycle",
		e.FrequencyHz, e.Samples, e.SamplesPerCycle)
}

// MaxPeakToPeakPerCycle splits the samples into whole cycles of 1/f seconds
// and returns, per signal, the largest max-min found in a single cycle.
// The sample step is taken from t[2]-t[1] (t[1]-t[0] for two samples);
// trailing samples that do not fill a cycle are ignored.
func MaxPeakToPeakPerCycle(t []float64, ys [][]float64, f float64) ([]float64, error) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid reference frequency %g", f)
	}
	n := len(t)
	for i, y := range ys {
		if len(y) != n {
			return nil, fmt.Errorf("signal %d has %d samples for %d timestamps", i, len(y), n)
		}
	}
	if n < 2 {
		return nil, &InsufficientSamplesError{Samples: n, FrequencyHz: f}
	}
	dt := t[1] - t[0]
	if n > 2 {
		dt = t[2] - t[1]
	}
	if dt <= 0 {
		return nil, fmt.Errorf("non-increasing time vector (dt=%g)", dt)
	}
	spc := int((1 / f) / dt)
	if spc == 0 || n/spc == 0 {
		return nil, &InsufficientSamplesError{Samples: n, SamplesPerCycle: spc, FrequencyHz: f}
	}
	cycles := n / spc

	out := make([]float64, len(ys))
	for i, y := range ys {
		best := math.Inf(-1)
		for c := 0; c < cycles; c++ {
			w := y[c*spc : (c+1)*spc]
			if ptp := floats.Max(w) - floats.Min(w); ptp > best {
				best = ptp
			}
		}
		out[i] = best
	}
	return out, nil
}

// Window returns the samples strictly after start.
func Window(t []float64, ys [][]float64, start float64) ([]float64, [][]float64) {
	i := 0
	for i < len(t) && t[i] <= start {
		i++
	}
	out := make([][]float64, len(ys))
	for k, y := range ys {
		out[k] = y[i:]
	}
	return t[i:], out
}

// Result holds the amplitudes of one analysis. Errors holds the failure of
// each category that could not be analysed; other categories still report.
type Result struct {
	Amplitudes []model.OscillationResult
	Errors     map[model.SignalKind]error
}

// Err joins the per-category errors.
func (r Result) Err() error {
	var errs []error
	for _, k := range model.Kinds {
		if err, ok := r.Errors[k]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Analyze computes the amplitude of every classified series using only
// samples after start, category by category.
func Analyze(tbl channels.Table, start, f float64) Result {
	res := Result{Errors: map[model.SignalKind]error{}}
	t, _ := Window(tbl.Time, nil, start)
	for _, k := range model.Kinds {
		series := tbl.ByKind(k)
		if len(series) == 0 {
			continue
		}
		ys := make([][]float64, len(series))
		for i, s := range series {
			ys[i] = s.Value[len(s.Value)-len(t):]
		}
		amps, err := MaxPeakToPeakPerCycle(t, ys, f)
		if err != nil {
			res.Errors[k] = err
			continue
		}
		for i, s := range series {
			res.Amplitudes = append(res.Amplitudes, model.OscillationResult{
				Name:        s.Name,
				Kind:        s.Kind,
				Bus:         s.Bus,
				FromBus:     s.FromBus,
				ToBus:       s.ToBus,
				AmplitudeMW: amps[i],
			})
		}
	}
	return res
}
