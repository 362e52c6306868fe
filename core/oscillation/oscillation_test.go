package oscillation

import (
	"errors"
	"math"
	"testing"

	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/model"
)

func sampled(n int, dt float64, fn func(t float64) float64) ([]float64, []float64) {
	t := make([]float64, n)
	y := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
		y[i] = fn(t[i])
	}
	return t, y
}

func TestMaxPeakToPeakSinusoid(t *testing.T) {
	const (
		amp  = 10.0
		freq = 1.0
		dt   = 0.001
	)
	ts, y := sampled(5000, dt, func(x float64) float64 { return amp * math.Sin(2*math.Pi*freq*x) })
	got, err := MaxPeakToPeakPerCycle(ts, [][]float64{y}, freq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bound := 2 * dt * 2 * math.Pi * freq * amp
	if math.Abs(got[0]-2*amp) > bound {
		t.Fatalf("ptp = %v, want %v +/- %v", got[0], 2*amp, bound)
	}
}

func TestMaxPeakToPeakIgnoresTrend(t *testing.T) {
	// a 2 MW square wave riding on a 1 MW/s ramp
	ts, y := sampled(400, 0.01, func(x float64) float64 {
		sq := 0.0
		if math.Mod(x, 1) >= 0.5 {
			sq = 2
		}
		return x + sq
	})
	got, err := MaxPeakToPeakPerCycle(ts, [][]float64{y}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	global := y[len(y)-1] - y[0]
	if got[0] >= global || got[0] < 2 || got[0] > 3 {
		t.Fatalf("per-cycle ptp = %v, global swing %v", got[0], global)
	}
}

func TestMaxPeakToPeakMultipleSignals(t *testing.T) {
	ts := []float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2.0}
	ys := [][]float64{
		{0, 1, 0, -1, 0, 3, 0, -3, 100},
		{5, 5, 5, 5, 5, 5, 5, 5, 5},
	}
	got, err := MaxPeakToPeakPerCycle(ts, ys, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 4 samples per cycle, 2 whole cycles, the trailing sample is ignored
	if got[0] != 6 || got[1] != 0 {
		t.Fatalf("got %v, want [6 0]", got)
	}
}

func TestMaxPeakToPeakInsufficient(t *testing.T) {
	ts, y := sampled(50, 0.01, math.Sin)
	_, err := MaxPeakToPeakPerCycle(ts, [][]float64{y}, 1)
	var ise *InsufficientSamplesError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientSamplesError, got %v", err)
	}
	if ise.SamplesPerCycle != 100 || ise.Samples != 50 {
		t.Fatalf("unexpected error detail %+v", ise)
	}
	_, err = MaxPeakToPeakPerCycle([]float64{0}, [][]float64{{1}}, 1)
	if !errors.As(err, &ise) {
		t.Fatalf("expected InsufficientSamplesError for one sample, got %v", err)
	}
	if _, err := MaxPeakToPeakPerCycle(ts, [][]float64{y}, 0); err == nil {
		t.Fatal("expected error for zero frequency")
	}
}

func TestWindow(t *testing.T) {
	ts, ys := Window([]float64{0, 1, 2, 3}, [][]float64{{10, 11, 12, 13}}, 1)
	if len(ts) != 2 || ts[0] != 2 || ys[0][0] != 12 {
		t.Fatalf("window kept %v %v", ts, ys)
	}
}

func table(n int, dt float64) channels.Table {
	ts, gen := sampled(n, dt, func(x float64) float64 {
		if x <= 1 {
			return 500 // pre-perturbation transient
		}
		return 50 * math.Sin(2*math.Pi*x)
	})
	_, line := sampled(n, dt, func(x float64) float64 { return 5 * math.Sin(2*math.Pi*x) })
	return channels.Table{
		Time: ts,
		Series: []model.SignalSeries{
			{Name: "POWR 10[1]", Kind: model.KindGenerator, Bus: 10, Time: ts, Value: gen},
			{Name: "POWR 10 TO 20", Kind: model.KindTieLine, FromBus: 10, ToBus: 20, Time: ts, Value: line},
		},
	}
}

func TestAnalyzeExcludesPreStart(t *testing.T) {
	res := Analyze(table(400, 0.01), 1, 1)
	if err := res.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Amplitudes) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Amplitudes))
	}
	gen := res.Amplitudes[0]
	if gen.Kind != model.KindGenerator || gen.Bus != 10 || math.Abs(gen.AmplitudeMW-100) > 1 {
		t.Fatalf("generator result %+v", gen)
	}
	line := res.Amplitudes[1]
	if line.FromBus != 10 || line.ToBus != 20 || math.Abs(line.AmplitudeMW-10) > 0.2 {
		t.Fatalf("tie-line result %+v", line)
	}
}

func TestAnalyzeIsolatesCategoryErrors(t *testing.T) {
	res := Analyze(table(150, 0.01), 1, 1)
	if len(res.Errors) != 2 {
		t.Fatalf("expected errors for both categories, got %v", res.Errors)
	}
	if _, ok := res.Errors[model.KindLoad]; ok {
		t.Fatal("empty category must not report an error")
	}
	var ise *InsufficientSamplesError
	if !errors.As(res.Err(), &ise) {
		t.Fatalf("joined error should wrap InsufficientSamplesError: %v", res.Err())
	}
	if len(res.Amplitudes) != 0 {
		t.Fatalf("no amplitude expected, got %v", res.Amplitudes)
	}
}
