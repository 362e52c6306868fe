package scenarios

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/driver"
	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/network"
	"github.com/kilianp07/lddl/core/oscillation"
	"github.com/kilianp07/lddl/infra/logger"
	"github.com/kilianp07/lddl/infra/metrics"
	"github.com/kilianp07/lddl/infra/simulator/synthetic"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	eng := synthetic.NewWithCase(sc.engineConfig(), synthetic.DefaultCase())
	ctx := context.Background()
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = eng.Close() }()
	snap, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	d := driver.New(eng, driver.Config{}, logger.NopLogger{}, sink, nil)
	res, err := d.Run(ctx, sc.Waveform, model.LoadTarget{Bus: sc.Bus, ID: sc.LoadID})
	if got := errorKind(err); got != sc.Expected.Error {
		t.Fatalf("scenario %s expected error %q, got %q (%v)", sc.Name, sc.Expected.Error, got, err)
	}
	if sc.Expected.Error == "config" {
		return
	}
	if n, err := testutil.GatherAndCount(reg, "lddl_runs_total"); err != nil || n != 1 {
		t.Errorf("scenario %s expected one run series, got %d (%v)", sc.Name, n, err)
	}
	if err != nil {
		return
	}
	if len(res.Breakpoints) != sc.Expected.Breakpoints {
		t.Errorf("scenario %s expected %d breakpoints, got %d", sc.Name, sc.Expected.Breakpoints, len(res.Breakpoints))
	}

	tbl, err := channels.Extract(res.Channels, channels.Options{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	osc := oscillation.Analyze(tbl, sc.Waveform.StartTimeS, sc.Waveform.FreqPrimaryHz)
	if err := osc.Err(); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	rep, err := impact.Rank(osc.Amplitudes, sc.ThresholdMW, network.NewBusIndex(snap.Buses), sc.Bus)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(rep.Generators) < sc.Expected.MinGenerators {
		t.Errorf("scenario %s expected at least %d generators, got %d", sc.Name, sc.Expected.MinGenerators, len(rep.Generators))
	}
	if len(rep.Lines) < sc.Expected.MinLines {
		t.Errorf("scenario %s expected at least %d lines, got %d", sc.Name, sc.Expected.MinLines, len(rep.Lines))
	}
}

func errorKind(err error) string {
	var cfgErr *model.ConfigError
	var ctlErr *driver.SimulationControlError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "config"
	case driver.IsAttachmentError(err):
		return "no_load"
	case errors.As(err, &ctlErr):
		return "control"
	default:
		return "other"
	}
}
