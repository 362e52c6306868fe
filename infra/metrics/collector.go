package metrics

import (
	"context"

	"github.com/kilianp07/lddl/core/events"
	coremetrics "github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/internal/eventbus"
)

// StartEventCollector subscribes to the run event bus and forwards every
// lifecycle event to sinks implementing ProgressRecorder. It stops when the
// context is canceled or the bus is closed. The returned channel is closed
// once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.RunEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.ProgressRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordProgress(progressFromEvent(ev))
			}
		}
	}()
	return done
}

func progressFromEvent(ev events.RunEvent) coremetrics.ProgressEvent {
	out := coremetrics.ProgressEvent{
		RunID: ev.RunID,
		Bus:   ev.Bus,
		Shape: ev.Shape,
		Stage: string(ev.Stage),
		Index: ev.Index,
		Total: ev.Total,
		TimeS: ev.TimeS,
		Time:  ev.Time,
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}
