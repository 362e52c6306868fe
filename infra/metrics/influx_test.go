package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func TestInfluxSink_RecordStep(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.StepEvent{
		RunID:      "r1",
		Bus:        1001,
		Shape:      model.ShapeMonoPeriodic,
		Index:      3,
		TimeS:      1.25,
		SetpointMW: 100,
		AppliedMW:  450.1234,
		Duration:   2 * time.Millisecond,
		Time:       now,
	}
	if err := sink.RecordStep(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("lddl_step").
		AddTag("run_id", "r1").
		AddTag("bus", "1001").
		AddTag("shape", "Mono-periodic").
		AddField("index", 3).
		AddField("sim_time_s", 1.25).
		AddField("setpoint_mw", 100.0).
		AddField("applied_mw", 450.123).
		AddField("advance_ms", 2.0).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	bodies := rec.all()
	if len(bodies) != 1 || bodies[0] != exp {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordRun(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:       "r1",
		Bus:         2,
		Shape:       model.ShapeBiPeriodic,
		Breakpoints: 45,
		BaseLoadMW:  300,
		FinalTimeS:  10,
		Success:     false,
		Error:       "timeout",
		Duration:    time.Second,
		Time:        now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("lddl_run").
		AddTag("run_id", "r1").
		AddTag("bus", "2").
		AddTag("shape", "Bi-periodic").
		AddTag("success", "false").
		AddField("breakpoints", 45).
		AddField("base_load_mw", 300.0).
		AddField("final_time_s", 10.0).
		AddField("duration_ms", 1000.0).
		AddField("error", "timeout").
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	bodies := rec.all()
	if len(bodies) != 1 || bodies[0] != exp {
		t.Errorf("bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordOscillation(t *testing.T) {
	rec := &bodyRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Now()
	evs := []coremetrics.OscillationEvent{
		{RunID: "r1", SourceBus: 5, Kind: model.KindGenerator, Signals: 10, Exceedances: 2, InSourceZone: 1, MaxAmplitudeMW: 12.3456, Time: now},
		{RunID: "r1", SourceBus: 5, Kind: model.KindTieLine, Signals: 4, Time: now},
	}
	if err := sink.RecordOscillation(evs); err != nil {
		t.Fatalf("record: %v", err)
	}
	bodies := rec.all()
	if len(bodies) != 2 {
		t.Fatalf("expected one write per category, got %d", len(bodies))
	}
	p := write.NewPointWithMeasurement("lddl_oscillation").
		AddTag("run_id", "r1").
		AddTag("source_bus", "5").
		AddTag("category", "generator").
		AddField("signals", 10).
		AddField("exceedances", 2).
		AddField("in_source_zone", 1).
		AddField("max_amplitude_mw", 12.346).
		SetTime(now)
	if exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)); bodies[0] != exp {
		t.Errorf("unexpected body: %s", bodies[0])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
