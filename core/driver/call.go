package driver

import (
	"context"
	"time"

	"github.com/kilianp07/lddl/core/model"
)

// step locates an engine call in the schedule. index is -1 outside the
// breakpoint loop.
type step struct {
	index int
	at    model.Breakpoint
}

var noStep = step{index: -1}

type outcome[T any] struct {
	val    T
	status int
}

// call runs fn under the step timeout. The engine cannot be interrupted, so
// a call that times out keeps running in its goroutine until the engine
// returns; the run is aborted anyway.
func call[T any](ctx context.Context, timeout time.Duration, op string, at step, fn func() (T, int)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if timeout <= 0 {
		v, st := fn()
		if st != 0 {
			return v, &SimulationControlError{Op: op, Breakpoint: at.index, At: at.at, Status: st}
		}
		return v, nil
	}
	done := make(chan outcome[T], 1)
	go func() {
		v, st := fn()
		done <- outcome[T]{val: v, status: st}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case o := <-done:
		if o.status != 0 {
			return o.val, &SimulationControlError{Op: op, Breakpoint: at.index, At: at.at, Status: o.status}
		}
		return o.val, nil
	case <-timer.C:
		return zero, &SimulationTimeoutError{Op: op, Breakpoint: at.index, At: at.at, Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func status(st int) (struct{}, int) { return struct{}{}, st }
