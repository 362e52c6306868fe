package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/lddl/core/events"
	"github.com/kilianp07/lddl/core/metrics"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/simulator"
	"github.com/kilianp07/lddl/infra/logger"
	"github.com/kilianp07/lddl/internal/eventbus"
)

type setCall struct {
	bus    int
	id     string
	active float64
	react  float64
}

type fakeEngine struct {
	loads    map[int][]string
	base     complex128
	advances []float64
	sets     []setCall
	queries  int
	failOp   string
	failAt   int
	advanceN int
	setN     int
	block    chan struct{}
	channels simulator.ChannelData
}

func (f *fakeEngine) Init(context.Context) error { return nil }
func (f *fakeEngine) Close() error               { return nil }

func (f *fakeEngine) AdvanceTo(t float64) int {
	if f.block != nil {
		<-f.block
	}
	f.advanceN++
	if f.failOp == OpAdvance && f.advanceN == f.failAt {
		return -3
	}
	f.advances = append(f.advances, t)
	return 0
}

func (f *fakeEngine) SetLoadSetpoint(bus int, id string, p, q float64) int {
	f.setN++
	if f.failOp == OpSetLoad && f.setN == f.failAt {
		return 7
	}
	f.sets = append(f.sets, setCall{bus: bus, id: id, active: p, react: q})
	return 0
}

func (f *fakeEngine) LoadIDs(bus int) ([]string, int) {
	if f.failOp == OpLoadIDs {
		return nil, 1
	}
	return f.loads[bus], 0
}

func (f *fakeEngine) QueryLoadActivePower(int, string) (complex128, int) {
	f.queries++
	return f.base, 0
}

func (f *fakeEngine) ChannelSeries() (simulator.ChannelData, int) { return f.channels, 0 }

type stepSink struct {
	steps []metrics.StepEvent
	runs  []metrics.RunEvent
}

func (s *stepSink) RecordStep(ev metrics.StepEvent) error {
	s.steps = append(s.steps, ev)
	return nil
}

func (s *stepSink) RecordRun(ev metrics.RunEvent) error {
	s.runs = append(s.runs, ev)
	return nil
}

func monoScenario() model.ScenarioConfig {
	return model.ScenarioConfig{
		Shape: model.ShapeMonoPeriodic, FreqPrimaryHz: 1, AmplitudeMW: 100,
		StartTimeS: 2, StopTimeS: 4,
	}
}

func TestRunAppliesBasePlusSetpoint(t *testing.T) {
	eng := &fakeEngine{loads: map[int][]string{1001: {"DC", "2"}}, base: complex(300, 40)}
	sink := &stepSink{}
	d := New(eng, Config{}, logger.NopLogger{}, sink, nil)

	res, err := d.Run(context.Background(), monoScenario(), model.LoadTarget{Bus: 1001, ReactiveMVAr: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.LoadID != "DC" {
		t.Fatalf("expected first load ID, got %q", res.LoadID)
	}
	if eng.queries != 1 {
		t.Fatalf("base load queried %d times, want 1", eng.queries)
	}
	if res.Cursor.BaseLoadMW != 300 {
		t.Fatalf("base = %v, want 300", res.Cursor.BaseLoadMW)
	}
	// (2,100) (2.5,0) (3,100) (3.5,0) (4,0)
	wantSets := []float64{400, 300, 400, 300, 300}
	if len(eng.sets) != len(wantSets) {
		t.Fatalf("sets = %d, want %d", len(eng.sets), len(wantSets))
	}
	for i, w := range wantSets {
		if eng.sets[i].active != w || eng.sets[i].react != 5 || eng.sets[i].id != "DC" {
			t.Fatalf("set %d = %+v, want active %v", i, eng.sets[i], w)
		}
	}
	wantAdv := []float64{2, 2.5, 3, 3.5, 4}
	if len(eng.advances) != len(wantAdv) {
		t.Fatalf("advances = %v, want %v", eng.advances, wantAdv)
	}
	for i, w := range wantAdv {
		if eng.advances[i] != w {
			t.Fatalf("advance %d = %v, want %v", i, eng.advances[i], w)
		}
	}
	if res.Cursor.CurrentTimeS != 4 {
		t.Fatalf("cursor at %v, want 4", res.Cursor.CurrentTimeS)
	}
	if len(sink.steps) != 5 || len(sink.runs) != 1 || !sink.runs[0].Success {
		t.Fatalf("unexpected metrics: steps=%d runs=%+v", len(sink.steps), sink.runs)
	}
	if res.RunID == "" {
		t.Fatal("missing run id")
	}
}

func TestRunAbsoluteSetpoints(t *testing.T) {
	eng := &fakeEngine{loads: map[int][]string{7: {"1"}}, base: 300}
	sc := monoScenario()
	sc.AbsoluteSetpoints = true
	d := New(eng, Config{}, logger.NopLogger{}, nil, nil)
	if _, err := d.Run(context.Background(), sc, model.LoadTarget{Bus: 7}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if eng.sets[0].active != 100 || eng.sets[1].active != 0 {
		t.Fatalf("absolute setpoints not applied: %+v", eng.sets[:2])
	}
}

func TestRunNoLoadAtBusDoesNotAdvance(t *testing.T) {
	cases := []struct {
		name   string
		loads  map[int][]string
		target model.LoadTarget
	}{
		{"no load", map[int][]string{}, model.LoadTarget{Bus: 5}},
		{"missing id", map[int][]string{5: {"1"}}, model.LoadTarget{Bus: 5, ID: "DC"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{loads: tc.loads}
			bus := eventbus.NewTyped[events.RunEvent]()
			sub := bus.SubscribeBuffered(8)
			sink := &stepSink{}
			d := New(eng, Config{}, logger.NopLogger{}, sink, bus)
			res, err := d.Run(context.Background(), monoScenario(), tc.target)
			bus.Close()
			var nl *NoLoadAtBusError
			if !errors.As(err, &nl) || nl.Bus != 5 {
				t.Fatalf("expected NoLoadAtBusError for bus 5, got %v", err)
			}
			if !IsAttachmentError(err) {
				t.Fatal("IsAttachmentError should match")
			}
			if eng.advanceN != 0 || len(eng.sets) != 0 {
				t.Fatalf("engine touched: advances=%d sets=%d", eng.advanceN, len(eng.sets))
			}
			if len(res.Breakpoints) != 0 {
				t.Fatalf("breakpoints scheduled for a missing load: %d", len(res.Breakpoints))
			}
			var stages []events.Stage
			for ev := range sub {
				stages = append(stages, ev.Stage)
			}
			if len(stages) != 1 || stages[0] != events.StageFailed {
				t.Fatalf("unexpected stages %v", stages)
			}
			if len(sink.runs) != 1 || sink.runs[0].Success || sink.runs[0].Breakpoints != 0 {
				t.Fatalf("failed run not recorded: %+v", sink.runs)
			}
		})
	}
}

func TestRunInvalidScenario(t *testing.T) {
	eng := &fakeEngine{loads: map[int][]string{1: {"1"}}}
	d := New(eng, Config{}, logger.NopLogger{}, nil, nil)
	sc := monoScenario()
	sc.StopTimeS = 1
	_, err := d.Run(context.Background(), sc, model.LoadTarget{Bus: 1})
	var ce *model.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if eng.advanceN != 0 {
		t.Fatal("engine advanced on invalid scenario")
	}
}

func TestRunFailsFastOnStatus(t *testing.T) {
	cases := []struct {
		op        string
		failAt    int
		wantBP    int
		wantAt    model.Breakpoint
		wantState int
		wantSets  int
	}{
		{op: OpSetLoad, failAt: 3, wantBP: 2, wantAt: model.Breakpoint{TimeS: 3, SetpointMW: 100}, wantState: 7, wantSets: 2},
		{op: OpAdvance, failAt: 1, wantBP: -1, wantAt: model.Breakpoint{TimeS: 2, SetpointMW: 100}, wantState: -3, wantSets: 0},
		{op: OpAdvance, failAt: 2, wantBP: 0, wantAt: model.Breakpoint{TimeS: 2, SetpointMW: 100}, wantState: -3, wantSets: 1},
	}
	for _, tc := range cases {
		eng := &fakeEngine{loads: map[int][]string{1: {"1"}}, failOp: tc.op, failAt: tc.failAt}
		sink := &stepSink{}
		d := New(eng, Config{}, logger.NopLogger{}, sink, nil)
		_, err := d.Run(context.Background(), monoScenario(), model.LoadTarget{Bus: 1})
		var sce *SimulationControlError
		if !errors.As(err, &sce) {
			t.Fatalf("%s#%d: expected SimulationControlError, got %v", tc.op, tc.failAt, err)
		}
		if sce.Op != tc.op || sce.Breakpoint != tc.wantBP || sce.At != tc.wantAt || sce.Status != tc.wantState {
			t.Fatalf("%s#%d: got %+v", tc.op, tc.failAt, sce)
		}
		if len(eng.sets) != tc.wantSets {
			t.Fatalf("%s#%d: sets after failure = %d, want %d", tc.op, tc.failAt, len(eng.sets), tc.wantSets)
		}
		if len(sink.runs) != 1 || sink.runs[0].Success {
			t.Fatalf("%s#%d: failed run not recorded", tc.op, tc.failAt)
		}
	}
}

func TestRunLoadIDsStatus(t *testing.T) {
	eng := &fakeEngine{failOp: OpLoadIDs}
	d := New(eng, Config{}, logger.NopLogger{}, nil, nil)
	_, err := d.Run(context.Background(), monoScenario(), model.LoadTarget{Bus: 1})
	var sce *SimulationControlError
	if !errors.As(err, &sce) || sce.Op != OpLoadIDs {
		t.Fatalf("expected load_ids control error, got %v", err)
	}
}

func TestRunStepTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	eng := &fakeEngine{loads: map[int][]string{1: {"1"}}, block: block}
	d := New(eng, Config{StepTimeout: 20 * time.Millisecond}, logger.NopLogger{}, nil, nil)
	_, err := d.Run(context.Background(), monoScenario(), model.LoadTarget{Bus: 1})
	var te *SimulationTimeoutError
	if !errors.As(err, &te) || te.Op != OpAdvance {
		t.Fatalf("expected advance timeout, got %v", err)
	}
}

func TestRunContextCanceled(t *testing.T) {
	eng := &fakeEngine{loads: map[int][]string{1: {"1"}}}
	d := New(eng, Config{}, logger.NopLogger{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Run(ctx, monoScenario(), model.LoadTarget{Bus: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunPublishesEvents(t *testing.T) {
	eng := &fakeEngine{loads: map[int][]string{1: {"1"}}, base: 10}
	bus := eventbus.NewTyped[events.RunEvent]()
	sub := bus.SubscribeBuffered(32)
	d := New(eng, Config{}, logger.NopLogger{}, nil, bus)
	if _, err := d.Run(context.Background(), monoScenario(), model.LoadTarget{Bus: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}
	bus.Close()
	var stages []events.Stage
	for ev := range sub {
		stages = append(stages, ev.Stage)
	}
	// started, base_load, 5 breakpoints, completed
	if len(stages) != 8 || stages[0] != events.StageStarted || stages[1] != events.StageBaseLoad || stages[7] != events.StageCompleted {
		t.Fatalf("unexpected stages %v", stages)
	}
}
