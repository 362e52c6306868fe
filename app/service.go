// Package app wires the configuration to the simulation, analysis and
// output components and runs every target bus in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/driver"
	"github.com/kilianp07/lddl/core/events"
	"github.com/kilianp07/lddl/core/factory"
	"github.com/kilianp07/lddl/core/impact"
	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/monitoring"
	"github.com/kilianp07/lddl/core/network"
	"github.com/kilianp07/lddl/core/oscillation"
	"github.com/kilianp07/lddl/core/runlog"
	"github.com/kilianp07/lddl/core/simulator"
	"github.com/kilianp07/lddl/infra/logger"
	"github.com/kilianp07/lddl/infra/metrics"
	"github.com/kilianp07/lddl/internal/eventbus"
	"github.com/kilianp07/lddl/pkg/export"
	"github.com/kilianp07/lddl/pkg/plot"
)

// Run stages reported to the error monitor.
const (
	stageInit     = "init"
	stageSimulate = "simulate"
	stageAnalyze  = "analyze"
	stageExport   = "export"
)

// BusResult is the outcome of the run at one target bus.
type BusResult struct {
	Bus       int
	OutputDir string
	Run       driver.RunResult
	Table     channels.Table
	Analysis  oscillation.Result
	Report    impact.Report
	Err       error
}

// Service runs the perturbation study configured in Config.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	sink  coremetrics.MetricsSink
	store runlog.Store
	bus   *eventbus.TypedBus[events.RunEvent]
	// buses comes from the configured bus file. Nil falls back to the
	// engine network.
	buses network.BusIndex

	newEngine func(factory.ModuleConfig) (simulator.Engine, error)
	collected <-chan struct{}
	cancel    context.CancelFunc
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		_ = closeSink(sink)
		return nil, fmt.Errorf("run log: %w", err)
	}
	var buses network.BusIndex
	if cfg.Analysis.BusFile != "" {
		if buses, err = network.LoadBusCSV(cfg.Analysis.BusFile); err != nil {
			_ = closeSink(sink)
			if store != nil {
				_ = store.Close()
			}
			return nil, fmt.Errorf("bus file: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:       cfg,
		log:       logg,
		sink:      sink,
		store:     store,
		bus:       eventbus.NewTyped[events.RunEvent](),
		buses:     buses,
		newEngine: simulator.NewEngine,
		cancel:    cancel,
	}
	s.collected = metrics.StartEventCollector(ctx, s.bus, sink)
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				logg.Errorf("prom server: %v", err)
			}
		}()
	}
	return s, nil
}

// RunAll runs every target bus in order. A failing bus does not stop the
// following ones; the returned error joins every failure.
func (s *Service) RunAll(ctx context.Context) ([]BusResult, error) {
	if len(s.cfg.Target.Buses) == 0 {
		return nil, errors.New("no target bus configured")
	}
	results := make([]BusResult, 0, len(s.cfg.Target.Buses))
	var errs []error
	for _, b := range s.cfg.Target.Buses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := s.RunBus(ctx, b)
		results = append(results, res)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("bus %d: %w", b, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

// RunBus runs the perturbation at one bus with a fresh engine, analyses the
// recorded channels and writes the outputs under Results_<bus>.
func (s *Service) RunBus(ctx context.Context, bus int) BusResult {
	res := BusResult{Bus: bus, OutputDir: filepath.Join(s.cfg.Files.OutputDir, fmt.Sprintf("Results_%d", bus))}
	log := s.log.With(map[string]any{"bus": bus})
	stage, err := s.runBus(ctx, &res, log)
	if err != nil {
		res.Err = err
		log.Errorf("%s failed: %v", stage, err)
		monitoring.CaptureRunFailure(err, bus, stage)
	}
	s.appendRecord(ctx, res)
	return res
}

func (s *Service) runBus(ctx context.Context, res *BusResult, log logger.Logger) (string, error) {
	engine, err := s.newEngine(s.cfg.Simulator)
	if err != nil {
		return stageInit, fmt.Errorf("engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warnf("engine close: %v", err)
		}
	}()
	if err := engine.Init(ctx); err != nil {
		return stageInit, fmt.Errorf("engine init: %w", err)
	}

	buses := s.buses
	var sel *network.Selection
	if nr, ok := engine.(simulator.NetworkReader); ok {
		snap, err := nr.Snapshot()
		if err != nil {
			return stageInit, fmt.Errorf("network snapshot: %w", err)
		}
		if buses == nil {
			buses = network.NewBusIndex(snap.Buses)
		}
		selected, err := network.Select(snap, res.Bus, s.cfg.Analysis.Thresholds)
		if err != nil {
			return stageInit, err
		}
		sel = &selected
		if cp, ok := engine.(simulator.ChannelPlanner); ok {
			for _, ch := range network.ChannelPlan(snap, selected, res.Bus) {
				if err := cp.AddChannel(ch); err != nil {
					return stageInit, fmt.Errorf("add channel %s: %w", ch.Name(), err)
				}
			}
		}
		log.Infof("monitoring %d generator buses, %d load buses, %d lines", len(selected.GenBuses), len(selected.LoadBuses), len(selected.Lines))
	}

	d := driver.New(engine, s.cfg.Driver, logger.New("driver"), s.sink, s.bus)
	target := model.LoadTarget{Bus: res.Bus, ID: s.cfg.Target.LoadID, ReactiveMVAr: s.cfg.Target.ReactiveMVAr}
	res.Run, err = d.Run(ctx, s.cfg.Scenario, target)
	if err != nil {
		return stageSimulate, err
	}
	monitoring.StageDone(res.Bus, stageSimulate, map[string]any{"run_id": res.Run.RunID, "breakpoints": len(res.Run.Breakpoints)})
	if err := s.writeRun(res); err != nil {
		return stageExport, err
	}

	opts := channels.Options{SourceBus: res.Bus}
	if sel != nil {
		opts.MonitoredLoadBuses = sel.LoadBuses
	}
	res.Table, err = channels.Extract(res.Run.Channels, opts)
	if err != nil {
		return stageAnalyze, err
	}
	sc := res.Run.Scenario
	res.Analysis = oscillation.Analyze(res.Table, sc.StartTimeS, sc.FreqPrimaryHz)
	for k, err := range res.Analysis.Errors {
		log.Warnf("%s oscillations skipped: %v", k.Label(), err)
	}
	res.Report, err = impact.Rank(res.Analysis.Amplitudes, s.cfg.Analysis.ThresholdMW, buses, res.Bus)
	if err != nil {
		return stageAnalyze, err
	}
	s.recordOscillation(*res)
	monitoring.StageDone(res.Bus, stageAnalyze, map[string]any{"impacted": len(res.Report.Generators) + len(res.Report.Loads) + len(res.Report.Lines)})

	if err := s.writeAnalysis(res, sel, buses); err != nil {
		return stageExport, err
	}
	log.Infow("bus completed", map[string]any{
		"run_id":     res.Run.RunID,
		"generators": len(res.Report.Generators),
		"loads":      len(res.Report.Loads),
		"lines":      len(res.Report.Lines),
		"output_dir": res.OutputDir,
	})
	return "", nil
}

func (s *Service) writeRun(res *BusResult) error {
	dir := res.OutputDir
	if err := export.WriteFile(filepath.Join(dir, export.ChannelsFile(res.Bus)), func(w io.Writer) error {
		return export.WriteChannels(w, res.Run.Channels)
	}); err != nil {
		return err
	}
	return export.WriteFile(filepath.Join(dir, export.BreakpointsFile(res.Bus)), func(w io.Writer) error {
		return export.WriteBreakpoints(w, res.Run.Breakpoints)
	})
}

func (s *Service) writeAnalysis(res *BusResult, sel *network.Selection, buses network.BusIndex) error {
	dir := res.OutputDir
	for _, k := range model.Kinds {
		list := res.Report.ByKind(k)
		if err := export.WriteFile(filepath.Join(dir, export.ImpactFile(k)), func(w io.Writer) error {
			return export.WriteImpacts(w, k, list)
		}); err != nil {
			return err
		}
	}
	if err := export.WriteFile(filepath.Join(dir, export.SummaryFile(res.Bus)), func(w io.Writer) error {
		return export.WriteSummary(w, res.Report)
	}); err != nil {
		return err
	}
	if sel != nil {
		if err := export.WriteFile(filepath.Join(dir, export.BusSummaryFile), func(w io.Writer) error {
			return export.WriteBusSummary(w, *sel, buses)
		}); err != nil {
			return err
		}
		if err := export.WriteFile(filepath.Join(dir, export.LinesFile), func(w io.Writer) error {
			return export.WriteLines(w, sel.Lines)
		}); err != nil {
			return err
		}
	}
	if s.cfg.Files.SkipPlots {
		return nil
	}
	if err := export.WriteFile(filepath.Join(dir, plot.TimeSeriesFile(res.Bus)), func(w io.Writer) error {
		return plot.TimeSeries(w, res.Table, res.Analysis, res.Bus)
	}); err != nil {
		return err
	}
	if err := export.WriteFile(filepath.Join(dir, plot.VoltageFile(res.Bus)), func(w io.Writer) error {
		return plot.VoltageDeviations(w, res.Table)
	}); err != nil {
		return err
	}
	if !plot.HasCoordinates(buses) {
		return nil
	}
	return export.WriteFile(filepath.Join(dir, plot.RiskMapFile(res.Bus)), func(w io.Writer) error {
		return plot.RiskMap(w, res.Report, buses)
	})
}

func (s *Service) recordOscillation(res BusResult) {
	rec, ok := s.sink.(coremetrics.OscillationRecorder)
	if !ok {
		return
	}
	now := time.Now()
	evs := make([]coremetrics.OscillationEvent, 0, len(model.Kinds))
	for i, k := range model.Kinds {
		ev := coremetrics.OscillationEvent{RunID: res.Run.RunID, SourceBus: res.Bus, Kind: k, Time: now}
		for _, a := range res.Analysis.Amplitudes {
			if a.Kind != k {
				continue
			}
			ev.Signals++
			if a.AmplitudeMW > ev.MaxAmplitudeMW {
				ev.MaxAmplitudeMW = a.AmplitudeMW
			}
		}
		if i < len(res.Report.Summary) {
			ev.Exceedances = res.Report.Summary[i].Instances
			ev.InSourceZone = res.Report.Summary[i].InZone
		}
		evs = append(evs, ev)
	}
	if err := rec.RecordOscillation(evs); err != nil {
		s.log.Warnf("metrics oscillation: %v", err)
	}
}

func (s *Service) appendRecord(ctx context.Context, res BusResult) {
	if s.store == nil {
		return
	}
	sc := res.Run.Scenario
	if sc.Shape == "" {
		sc = s.cfg.Scenario
	}
	rec := runlog.Record{
		RunID:       res.Run.RunID,
		Timestamp:   time.Now(),
		Bus:         res.Bus,
		LoadID:      res.Run.LoadID,
		Shape:       sc.Shape,
		Scenario:    sc,
		BaseLoadMW:  res.Run.Cursor.BaseLoadMW,
		Breakpoints: len(res.Run.Breakpoints),
		FinalTimeS:  res.Run.Cursor.CurrentTimeS,
		ThresholdMW: s.cfg.Analysis.ThresholdMW,
		Summary:     res.Report.Summary,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	} else {
		rec.OutputDir = res.OutputDir
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Warnf("run log append: %v", err)
	}
}

// Close stops the event collector once every pending event is recorded,
// then releases the run log and the metrics sinks.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collected
	s.cancel()
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, closeSink(s.sink))
	return errors.Join(errs...)
}

func closeSink(sink coremetrics.MetricsSink) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
