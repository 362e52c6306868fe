package mqtt

import (
	"fmt"
	"strings"
	"time"

	coremetrics "github.com/kilianp07/lddl/core/metrics"
)

// Publisher sends JSON documents to a broker.
type Publisher interface {
	Publish(topic string, v any, retained bool) error
	Disconnect()
}

// Sink publishes run telemetry under <prefix>/bus/<bus>/<kind>. Run results
// and oscillation summaries are retained so late subscribers see the last
// outcome of every bus.
type Sink struct {
	pub    Publisher
	prefix string
}

// NewSink wraps pub. An empty prefix uses DefaultTopicPrefix.
func NewSink(pub Publisher, prefix string) *Sink {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Topic returns the topic used for kind messages about bus.
func (s *Sink) Topic(bus int, kind string) string {
	return fmt.Sprintf("%s/bus/%d/%s", s.prefix, bus, kind)
}

type stepMessage struct {
	RunID      string  `json:"run_id"`
	Shape      string  `json:"shape"`
	Index      int     `json:"index"`
	TimeS      float64 `json:"time_s"`
	SetpointMW float64 `json:"setpoint_mw"`
	AppliedMW  float64 `json:"applied_mw"`
	Timestamp  int64   `json:"timestamp"`
}

type runMessage struct {
	RunID       string  `json:"run_id"`
	Shape       string  `json:"shape"`
	Breakpoints int     `json:"breakpoints"`
	BaseLoadMW  float64 `json:"base_load_mw"`
	FinalTimeS  float64 `json:"final_time_s"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
	DurationMS  int64   `json:"duration_ms"`
	Timestamp   int64   `json:"timestamp"`
}

type oscillationMessage struct {
	Category       string  `json:"category"`
	Signals        int     `json:"signals"`
	Exceedances    int     `json:"exceedances"`
	InSourceZone   int     `json:"in_source_zone"`
	MaxAmplitudeMW float64 `json:"max_amplitude_mw"`
}

type progressMessage struct {
	RunID     string  `json:"run_id"`
	Stage     string  `json:"stage"`
	Index     int     `json:"index"`
	Total     int     `json:"total"`
	TimeS     float64 `json:"time_s"`
	Error     string  `json:"error,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// RecordStep publishes the applied breakpoint.
func (s *Sink) RecordStep(ev coremetrics.StepEvent) error {
	return s.pub.Publish(s.Topic(ev.Bus, "step"), stepMessage{
		RunID:      ev.RunID,
		Shape:      ev.Shape.String(),
		Index:      ev.Index,
		TimeS:      ev.TimeS,
		SetpointMW: ev.SetpointMW,
		AppliedMW:  ev.AppliedMW,
		Timestamp:  millis(ev.Time),
	}, false)
}

// RecordRun publishes the run outcome as a retained message.
func (s *Sink) RecordRun(ev coremetrics.RunEvent) error {
	return s.pub.Publish(s.Topic(ev.Bus, "run"), runMessage{
		RunID:       ev.RunID,
		Shape:       ev.Shape.String(),
		Breakpoints: ev.Breakpoints,
		BaseLoadMW:  ev.BaseLoadMW,
		FinalTimeS:  ev.FinalTimeS,
		Success:     ev.Success,
		Error:       ev.Error,
		DurationMS:  ev.Duration.Milliseconds(),
		Timestamp:   millis(ev.Time),
	}, true)
}

// RecordOscillation publishes one retained document per source bus.
func (s *Sink) RecordOscillation(evs []coremetrics.OscillationEvent) error {
	byBus := make(map[int][]oscillationMessage)
	var order []int
	for _, ev := range evs {
		if _, ok := byBus[ev.SourceBus]; !ok {
			order = append(order, ev.SourceBus)
		}
		byBus[ev.SourceBus] = append(byBus[ev.SourceBus], oscillationMessage{
			Category:       ev.Kind.String(),
			Signals:        ev.Signals,
			Exceedances:    ev.Exceedances,
			InSourceZone:   ev.InSourceZone,
			MaxAmplitudeMW: ev.MaxAmplitudeMW,
		})
	}
	for _, bus := range order {
		if err := s.pub.Publish(s.Topic(bus, "oscillation"), byBus[bus], true); err != nil {
			return err
		}
	}
	return nil
}

// RecordProgress publishes a driver lifecycle event.
func (s *Sink) RecordProgress(ev coremetrics.ProgressEvent) error {
	return s.pub.Publish(s.Topic(ev.Bus, "progress"), progressMessage{
		RunID:     ev.RunID,
		Stage:     ev.Stage,
		Index:     ev.Index,
		Total:     ev.Total,
		TimeS:     ev.TimeS,
		Error:     ev.Error,
		Timestamp: millis(ev.Time),
	}, false)
}

// Close disconnects the underlying publisher.
func (s *Sink) Close() {
	s.pub.Disconnect()
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
