package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/lddl/core/events"
	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/internal/eventbus"
)

type progressSink struct {
	coremetrics.NopSink
	mu  sync.Mutex
	evs []coremetrics.ProgressEvent
}

func (p *progressSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return nil
}

func (p *progressSink) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.evs)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.NewTyped[events.RunEvent]()
	sink := &progressSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartEventCollector(ctx, bus, sink)

	bus.Publish(events.RunEvent{RunID: "r", Bus: 1, Stage: events.StageStarted, Total: 3})
	bus.Publish(events.RunEvent{RunID: "r", Bus: 1, Stage: events.StageFailed, Err: errors.New("boom")})

	deadline := time.Now().Add(time.Second)
	for sink.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() != 2 {
		t.Fatalf("expected 2 progress events, got %d", sink.count())
	}
	sink.mu.Lock()
	last := sink.evs[1]
	sink.mu.Unlock()
	if last.Stage != "failed" || last.Error != "boom" {
		t.Fatalf("unexpected event %+v", last)
	}

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after bus close")
	}
}

func TestStartEventCollector_NoRecorder(t *testing.T) {
	bus := eventbus.NewTyped[events.RunEvent]()
	type stepOnly struct{ coremetrics.MetricsSink }
	done := StartEventCollector(context.Background(), bus, stepOnly{})
	select {
	case <-done:
	default:
		t.Fatal("collector should exit immediately without a progress recorder")
	}
}
