package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/lddl/core/events"
	"github.com/kilianp07/lddl/core/logger"
	"github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/scheduler"
	"github.com/kilianp07/lddl/core/simulator"
	"github.com/kilianp07/lddl/internal/eventbus"
)

// Config tunes a Driver.
type Config struct {
	// StepTimeout bounds every engine call. Zero waits forever.
	StepTimeout time.Duration `json:"step_timeout" koanf:"step_timeout"`
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	RunID       string
	Bus         int
	LoadID      string
	Scenario    model.ScenarioConfig
	Breakpoints []model.Breakpoint
	Cursor      model.SimulationCursor
	Channels    simulator.ChannelData
	Started     time.Time
	Duration    time.Duration
}

// Driver applies breakpoint schedules to a simulation engine.
type Driver struct {
	engine  simulator.Engine
	cfg     Config
	log     logger.Logger
	metrics metrics.MetricsSink
	bus     *eventbus.TypedBus[events.RunEvent]
	now     func() time.Time
}

// New returns a Driver bound to engine. A nil metrics sink or event bus
// disables that output.
func New(engine simulator.Engine, cfg Config, log logger.Logger, sink metrics.MetricsSink, bus *eventbus.TypedBus[events.RunEvent]) *Driver {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Driver{engine: engine, cfg: cfg, log: log, metrics: sink, bus: bus, now: time.Now}
}

// Run validates the scenario, resolves the target load, schedules the
// scenario and plays it. The engine is never advanced and no breakpoint is
// scheduled when the scenario is invalid or the target load cannot be found.
func (d *Driver) Run(ctx context.Context, sc model.ScenarioConfig, target model.LoadTarget) (RunResult, error) {
	if err := sc.Validate(); err != nil {
		return RunResult{}, err
	}
	sc = sc.Normalized()
	res := RunResult{
		RunID:    uuid.NewString(),
		Bus:      target.Bus,
		Scenario: sc,
		Started:  d.now(),
	}
	log := d.log.With(map[string]any{"run_id": res.RunID, "bus": target.Bus, "shape": sc.Shape.String()})

	err := d.prepare(ctx, &res, target, log)
	if err == nil {
		err = d.play(ctx, &res, target)
	}
	res.Duration = d.now().Sub(res.Started)
	d.recordRun(res, err)
	if err != nil {
		log.Errorf("run failed at t=%.4fs: %v", res.Cursor.CurrentTimeS, err)
		d.publish(res, events.RunEvent{Stage: events.StageFailed, Err: err, TimeS: res.Cursor.CurrentTimeS})
		return res, err
	}
	log.Infow("run completed", map[string]any{
		"base_load_mw": res.Cursor.BaseLoadMW,
		"final_time_s": res.Cursor.CurrentTimeS,
		"channels":     len(res.Channels.IDs),
		"duration_ms":  res.Duration.Milliseconds(),
	})
	d.publish(res, events.RunEvent{Stage: events.StageCompleted, TimeS: res.Cursor.CurrentTimeS, BaseLoadMW: res.Cursor.BaseLoadMW})
	return res, nil
}

// prepare resolves the target load and only then schedules the breakpoints.
func (d *Driver) prepare(ctx context.Context, res *RunResult, target model.LoadTarget, log logger.Logger) error {
	id, err := d.resolveLoad(ctx, target)
	if err != nil {
		return err
	}
	res.LoadID = id
	bps, err := scheduler.Schedule(res.Scenario)
	if err != nil {
		return err
	}
	res.Breakpoints = bps
	d.publish(*res, events.RunEvent{Stage: events.StageStarted, Total: len(bps)})
	log.Infof("starting %s perturbation of load %q: %d breakpoints from %.3fs to %.3fs",
		res.Scenario.Shape, id, len(bps), res.Scenario.StartTimeS, res.Scenario.StopTimeS)
	return nil
}

func (d *Driver) play(ctx context.Context, res *RunResult, target model.LoadTarget) error {
	id := res.LoadID
	bps := res.Breakpoints
	timeout := d.cfg.StepTimeout

	if _, err := call(ctx, timeout, OpAdvance, step{index: -1, at: bps[0]}, func() (struct{}, int) {
		return status(d.engine.AdvanceTo(bps[0].TimeS))
	}); err != nil {
		return fmt.Errorf("flat pre-run: %w", err)
	}
	res.Cursor.CurrentTimeS = bps[0].TimeS

	s, err := call(ctx, timeout, OpQueryLoad, step{index: -1, at: bps[0]}, func() (complex128, int) {
		return d.engine.QueryLoadActivePower(target.Bus, id)
	})
	if err != nil {
		return fmt.Errorf("resolve base load: %w", err)
	}
	res.Cursor.BaseLoadMW = real(s)
	d.log.Debugw("base load resolved", map[string]any{"run_id": res.RunID, "load_id": id, "base_load_mw": res.Cursor.BaseLoadMW})
	d.publish(*res, events.RunEvent{Stage: events.StageBaseLoad, BaseLoadMW: res.Cursor.BaseLoadMW, TimeS: res.Cursor.CurrentTimeS})

	for i, bp := range bps {
		applied := bp.SetpointMW
		if !res.Scenario.AbsoluteSetpoints {
			applied += res.Cursor.BaseLoadMW
		}
		if _, err := call(ctx, timeout, OpSetLoad, step{index: i, at: bp}, func() (struct{}, int) {
			return status(d.engine.SetLoadSetpoint(target.Bus, id, applied, target.ReactiveMVAr))
		}); err != nil {
			return err
		}
		start := d.now()
		if i+1 < len(bps) {
			next := bps[i+1].TimeS
			if _, err := call(ctx, timeout, OpAdvance, step{index: i, at: bp}, func() (struct{}, int) {
				return status(d.engine.AdvanceTo(next))
			}); err != nil {
				return err
			}
			res.Cursor.CurrentTimeS = next
		}
		d.recordStep(*res, i, bp, applied, d.now().Sub(start))
	}

	ch, err := call(ctx, timeout, OpChannels, noStep, d.engine.ChannelSeries)
	if err != nil {
		return fmt.Errorf("collect channels: %w", err)
	}
	res.Channels = ch
	return nil
}

// resolveLoad returns the load ID to perturb. An empty configured ID picks
// the first load of the bus.
func (d *Driver) resolveLoad(ctx context.Context, target model.LoadTarget) (string, error) {
	ids, err := call(ctx, d.cfg.StepTimeout, OpLoadIDs, noStep, func() ([]string, int) {
		return d.engine.LoadIDs(target.Bus)
	})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", &NoLoadAtBusError{Bus: target.Bus}
	}
	if target.ID == "" {
		return ids[0], nil
	}
	for _, id := range ids {
		if id == target.ID {
			return id, nil
		}
	}
	return "", &NoLoadAtBusError{Bus: target.Bus, ID: target.ID}
}

func (d *Driver) recordStep(res RunResult, i int, bp model.Breakpoint, applied float64, dur time.Duration) {
	ev := metrics.StepEvent{
		RunID:      res.RunID,
		Bus:        res.Bus,
		Shape:      res.Scenario.Shape,
		Index:      i,
		TimeS:      bp.TimeS,
		SetpointMW: bp.SetpointMW,
		AppliedMW:  applied,
		Duration:   dur,
		Time:       d.now(),
	}
	if err := d.metrics.RecordStep(ev); err != nil {
		d.log.Warnf("metrics step: %v", err)
	}
	d.publish(res, events.RunEvent{
		Stage:      events.StageBreakpoint,
		Index:      i,
		Total:      len(res.Breakpoints),
		TimeS:      bp.TimeS,
		SetpointMW: applied,
		BaseLoadMW: res.Cursor.BaseLoadMW,
	})
}

func (d *Driver) recordRun(res RunResult, runErr error) {
	rec, ok := d.metrics.(metrics.RunRecorder)
	if !ok {
		return
	}
	ev := metrics.RunEvent{
		RunID:       res.RunID,
		Bus:         res.Bus,
		Shape:       res.Scenario.Shape,
		Breakpoints: len(res.Breakpoints),
		BaseLoadMW:  res.Cursor.BaseLoadMW,
		FinalTimeS:  res.Cursor.CurrentTimeS,
		Success:     runErr == nil,
		Duration:    res.Duration,
		Time:        d.now(),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	if err := rec.RecordRun(ev); err != nil {
		d.log.Warnf("metrics run: %v", err)
	}
}

func (d *Driver) publish(res RunResult, ev events.RunEvent) {
	if d.bus == nil {
		return
	}
	ev.RunID = res.RunID
	ev.Bus = res.Bus
	ev.Shape = res.Scenario.Shape.String()
	ev.Time = d.now()
	d.bus.Publish(ev)
}

// IsAttachmentError reports whether err means the target load is missing.
func IsAttachmentError(err error) bool {
	var nl *NoLoadAtBusError
	return errors.As(err, &nl)
}
