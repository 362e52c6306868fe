package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes perturbation runs to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes one applied breakpoint.
func (s *InfluxSink) RecordStep(ev coremetrics.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("lddl_step").
		AddTag("run_id", ev.RunID).
		AddTag("bus", strconv.Itoa(ev.Bus)).
		AddTag("shape", ev.Shape.String()).
		AddField("index", ev.Index).
		AddField("sim_time_s", round3(ev.TimeS)).
		AddField("setpoint_mw", round3(ev.SetpointMW)).
		AddField("applied_mw", round3(ev.AppliedMW)).
		AddField("advance_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the outcome of a run.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("lddl_run").
		AddTag("run_id", ev.RunID).
		AddTag("bus", strconv.Itoa(ev.Bus)).
		AddTag("shape", ev.Shape.String()).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("breakpoints", ev.Breakpoints).
		AddField("base_load_mw", round3(ev.BaseLoadMW)).
		AddField("final_time_s", round3(ev.FinalTimeS)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000))
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOscillation writes one point per category.
func (s *InfluxSink) RecordOscillation(evs []coremetrics.OscillationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("lddl_oscillation").
			AddTag("run_id", ev.RunID).
			AddTag("source_bus", strconv.Itoa(ev.SourceBus)).
			AddTag("category", ev.Kind.String()).
			AddField("signals", ev.Signals).
			AddField("exceedances", ev.Exceedances).
			AddField("in_source_zone", ev.InSourceZone).
			AddField("max_amplitude_mw", round3(ev.MaxAmplitudeMW)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
