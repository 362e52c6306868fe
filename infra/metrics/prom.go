package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/lddl/core/events"
	coremetrics "github.com/kilianp07/lddl/core/metrics"
)

// PromSink records perturbation runs in Prometheus metrics.
type PromSink struct {
	steps       *prometheus.CounterVec
	setpoint    *prometheus.GaugeVec
	stepLatency *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	oscillation *prometheus.GaugeVec
	exceedances *prometheus.GaugeVec
	progress    *prometheus.GaugeVec
}

// NewPromSink registers LDDL metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lddl_breakpoints_applied_total",
			Help: "Total number of breakpoint setpoints applied to the load",
		}, []string{"bus", "shape"}),
		setpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lddl_load_setpoint_mw",
			Help: "Last active power setpoint applied to the perturbing load",
		}, []string{"bus"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lddl_step_advance_seconds",
			Help:    "Wall time spent advancing the simulation between breakpoints",
			Buckets: prometheus.DefBuckets,
		}, []string{"bus", "shape"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lddl_runs_total",
			Help: "Total number of perturbation runs",
		}, []string{"bus", "shape", "success"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lddl_run_duration_seconds",
			Help:    "Wall time of a perturbation run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"bus", "shape"}),
		oscillation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lddl_max_oscillation_mw",
			Help: "Largest per-cycle peak-to-peak oscillation of the last run",
		}, []string{"source_bus", "category"}),
		exceedances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lddl_oscillation_exceedances",
			Help: "Number of elements whose oscillation exceeded the threshold",
		}, []string{"source_bus", "category", "zone"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lddl_run_progress_ratio",
			Help: "Fraction of the breakpoint schedule already applied",
		}, []string{"bus"}),
	}
	var err error
	if s.steps, err = register(reg, s.steps); err != nil {
		return nil, err
	}
	if s.setpoint, err = register(reg, s.setpoint); err != nil {
		return nil, err
	}
	if s.stepLatency, err = register(reg, s.stepLatency); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.runDuration, err = register(reg, s.runDuration); err != nil {
		return nil, err
	}
	if s.oscillation, err = register(reg, s.oscillation); err != nil {
		return nil, err
	}
	if s.exceedances, err = register(reg, s.exceedances); err != nil {
		return nil, err
	}
	if s.progress, err = register(reg, s.progress); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStep counts the breakpoint and tracks the applied setpoint.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	bus := strconv.Itoa(ev.Bus)
	s.steps.WithLabelValues(bus, ev.Shape.String()).Inc()
	s.setpoint.WithLabelValues(bus).Set(ev.AppliedMW)
	s.stepLatency.WithLabelValues(bus, ev.Shape.String()).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRun counts the run outcome and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	bus := strconv.Itoa(ev.Bus)
	s.runs.WithLabelValues(bus, ev.Shape.String(), strconv.FormatBool(ev.Success)).Inc()
	s.runDuration.WithLabelValues(bus, ev.Shape.String()).Observe(ev.Duration.Seconds())
	return nil
}

// RecordOscillation publishes the per-category findings of a run.
func (s *PromSink) RecordOscillation(evs []coremetrics.OscillationEvent) error {
	for _, ev := range evs {
		bus := strconv.Itoa(ev.SourceBus)
		cat := ev.Kind.String()
		s.oscillation.WithLabelValues(bus, cat).Set(ev.MaxAmplitudeMW)
		s.exceedances.WithLabelValues(bus, cat, "in").Set(float64(ev.InSourceZone))
		s.exceedances.WithLabelValues(bus, cat, "out").Set(float64(ev.Exceedances - ev.InSourceZone))
	}
	return nil
}

// RecordProgress tracks how much of the schedule has been applied.
func (s *PromSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	bus := strconv.Itoa(ev.Bus)
	switch ev.Stage {
	case string(events.StageStarted):
		s.progress.WithLabelValues(bus).Set(0)
	case string(events.StageBreakpoint):
		if ev.Total > 0 {
			s.progress.WithLabelValues(bus).Set(float64(ev.Index+1) / float64(ev.Total))
		}
	case string(events.StageCompleted):
		s.progress.WithLabelValues(bus).Set(1)
	}
	return nil
}
