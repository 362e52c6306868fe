// Package synthetic provides a deterministic in-process simulation engine.
// Every element responds to the commanded load change through a gain and a
// first-order lag integrated at a fixed step.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/lddl/core/factory"
	"github.com/kilianp07/lddl/core/network"
	"github.com/kilianp07/lddl/core/simulator"
)

// DefaultStepS is the integration step used when Config.StepS is unset.
const DefaultStepS = 1.0 / 300

// Engine status codes.
const (
	StatusNotInitialized = 1
	StatusUnknownElement = 2
	StatusTimeReversed   = 3
)

const (
	freqTauS = 0.5
	voltTauS = 0.2
	timeEps  = 1e-9
)

// Fault makes the engine misbehave on the Call-th call of Op (every call
// when Call is zero). Op uses the names load_ids, advance, set_load,
// query_load and channels.
type Fault struct {
	Op     string        `json:"op"`
	Call   int           `json:"call"`
	Status int           `json:"status"`
	Delay  time.Duration `json:"delay"`
}

// Config tunes the synthetic engine.
type Config struct {
	StepS float64 `json:"step_s"`
	// CaseFile is a JSON or YAML Case. Empty uses DefaultCase.
	CaseFile string `json:"case_file"`
	// FreqDroop is the per-unit frequency drop for a perturbation equal to
	// the total generation.
	FreqDroop float64 `json:"freq_droop"`
	Faults    []Fault `json:"faults"`
}

type lag struct {
	base, gain, tau, value float64
}

func (l *lag) step(dp, dt float64) {
	target := l.base + l.gain*dp
	if l.tau <= 0 {
		l.value = target
		return
	}
	l.value += (target - l.value) * (1 - math.Exp(-dt/l.tau))
}

type loadState struct {
	model     LoadModel
	response  lag
	commanded bool
	p, q      float64
}

type elemKey struct {
	bus int
	id  string
}

type branchKey struct {
	from, to int
}

// Engine is a deterministic simulation session over a Case.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	cs       Case
	step     float64
	totalGen float64

	initialized bool
	t           float64
	machines    map[elemKey]*lag
	loads       map[elemKey]*loadState
	loadOrder   []elemKey
	branches    map[branchKey]*lag
	freq        lag
	volts       map[int]*lag

	channels []network.Channel
	frozen   bool
	samples  []float64
	values   [][]float64

	calls map[string]int
}

// New creates an engine on the configured case.
func New(cfg Config) (*Engine, error) {
	cs := DefaultCase()
	if cfg.CaseFile != "" {
		var err error
		if cs, err = LoadCase(cfg.CaseFile); err != nil {
			return nil, err
		}
	}
	return NewWithCase(cfg, cs), nil
}

// NewWithCase creates an engine on cs.
func NewWithCase(cfg Config, cs Case) *Engine {
	step := cfg.StepS
	if step <= 0 {
		step = DefaultStepS
	}
	if cfg.FreqDroop == 0 {
		cfg.FreqDroop = 0.05
	}
	return &Engine{cfg: cfg, cs: cs, step: step, calls: make(map[string]int)}
}

func init() {
	_ = simulator.RegisterEngine("synthetic", func(conf map[string]any) (simulator.Engine, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c)
	})
}

// Init resets the simulation to t=0 with every element at its initial
// operating point.
func (e *Engine) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.cs.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.t = 0
	e.totalGen = 0
	e.machines = make(map[elemKey]*lag, len(e.cs.Machines))
	for _, m := range e.cs.Machines {
		e.machines[elemKey{m.Bus, m.ID}] = &lag{base: m.PGenMW, gain: m.Gain, tau: m.TauS, value: m.PGenMW}
		e.totalGen += m.PGenMW
	}
	e.loads = make(map[elemKey]*loadState, len(e.cs.Loads))
	e.loadOrder = e.loadOrder[:0]
	for _, l := range e.cs.Loads {
		k := elemKey{l.Bus, l.ID}
		e.loads[k] = &loadState{
			model:    l,
			response: lag{base: l.PMW, gain: l.Gain, tau: l.TauS, value: l.PMW},
			p:        l.PMW,
			q:        l.QMVAr,
		}
		e.loadOrder = append(e.loadOrder, k)
	}
	e.branches = make(map[branchKey]*lag, len(e.cs.Branches))
	for _, br := range e.cs.Branches {
		e.branches[branchKey{br.FromBus, br.ToBus}] = &lag{base: br.FlowMW, gain: br.Gain, tau: br.TauS, value: br.FlowMW}
	}
	gen := e.totalGen
	if gen <= 0 {
		gen = 1
	}
	e.freq = lag{gain: -e.cfg.FreqDroop / gen, tau: freqTauS}
	e.volts = make(map[int]*lag, len(e.cs.Buses))
	for _, b := range e.cs.Buses {
		e.volts[b.Number] = &lag{base: 1, gain: -b.VoltSens / 100, tau: voltTauS, value: 1}
	}
	e.channels = nil
	e.frozen = false
	e.samples = nil
	e.values = nil
	e.initialized = true
	return nil
}

// Close ends the session.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialized = false
	return nil
}

// Snapshot returns the static view of the case.
func (e *Engine) Snapshot() (network.Snapshot, error) {
	return e.cs.Snapshot(), nil
}

// AddChannel adds a channel to record. Channels are fixed once the first
// sample has been taken.
func (e *Engine) AddChannel(ch network.Channel) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return fmt.Errorf("engine not initialized")
	}
	if e.frozen {
		return fmt.Errorf("channels are fixed once the simulation has started")
	}
	if !e.knownChannel(ch) {
		return fmt.Errorf("unknown element for channel %s", ch.Name())
	}
	e.channels = append(e.channels, ch)
	return nil
}

// AdvanceTo integrates the case until timeS.
func (e *Engine) AdvanceTo(timeS float64) int {
	if st := e.fault("advance"); st != simulator.StatusOK {
		return st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return StatusNotInitialized
	}
	if timeS < e.t-timeEps {
		return StatusTimeReversed
	}
	e.startRecording()
	for e.t < timeS-timeEps {
		dt := e.step
		if e.t+dt > timeS-timeEps {
			dt = timeS - e.t
		}
		e.integrate(dt)
		e.t += dt
		e.record()
	}
	e.t = math.Max(e.t, timeS)
	return simulator.StatusOK
}

// SetLoadSetpoint commands a load. The new value applies immediately and
// is recorded as a second sample at the current time.
func (e *Engine) SetLoadSetpoint(bus int, id string, activeMW, reactiveMVAr float64) int {
	if st := e.fault("set_load"); st != simulator.StatusOK {
		return st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return StatusNotInitialized
	}
	l, ok := e.loads[elemKey{bus, id}]
	if !ok {
		return StatusUnknownElement
	}
	e.startRecording()
	l.commanded = true
	l.p = activeMW
	l.q = reactiveMVAr
	e.record()
	return simulator.StatusOK
}

// LoadIDs lists the loads of bus in case order.
func (e *Engine) LoadIDs(bus int) ([]string, int) {
	if st := e.fault("load_ids"); st != simulator.StatusOK {
		return nil, st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, StatusNotInitialized
	}
	var ids []string
	for _, k := range e.loadOrder {
		if k.bus == bus {
			ids = append(ids, k.id)
		}
	}
	return ids, simulator.StatusOK
}

// QueryLoadActivePower returns the current power of a load.
func (e *Engine) QueryLoadActivePower(bus int, id string) (complex128, int) {
	if st := e.fault("query_load"); st != simulator.StatusOK {
		return 0, st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return 0, StatusNotInitialized
	}
	l, ok := e.loads[elemKey{bus, id}]
	if !ok {
		return 0, StatusUnknownElement
	}
	return complex(l.p, l.q), simulator.StatusOK
}

// ChannelSeries returns a copy of every sample recorded so far.
func (e *Engine) ChannelSeries() (simulator.ChannelData, int) {
	if st := e.fault("channels"); st != simulator.StatusOK {
		return simulator.ChannelData{}, st
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return simulator.ChannelData{}, StatusNotInitialized
	}
	e.startRecording()
	out := simulator.ChannelData{
		IDs:    make([]string, len(e.channels)),
		Time:   append([]float64(nil), e.samples...),
		Values: make([][]float64, len(e.channels)),
	}
	for i, ch := range e.channels {
		out.IDs[i] = ch.Name()
		out.Values[i] = append([]float64(nil), e.values[i]...)
	}
	return out, simulator.StatusOK
}

func (e *Engine) fault(op string) int {
	e.mu.Lock()
	e.calls[op]++
	n := e.calls[op]
	var hit *Fault
	for i := range e.cfg.Faults {
		f := &e.cfg.Faults[i]
		if f.Op == op && (f.Call == 0 || f.Call == n) {
			hit = f
			break
		}
	}
	e.mu.Unlock()
	if hit == nil {
		return simulator.StatusOK
	}
	if hit.Delay > 0 {
		time.Sleep(hit.Delay)
	}
	return hit.Status
}

// perturbation is the total commanded change of active load.
func (e *Engine) perturbation() float64 {
	var dp float64
	for _, k := range e.loadOrder {
		if l := e.loads[k]; l.commanded {
			dp += l.p - l.model.PMW
		}
	}
	return dp
}

func (e *Engine) integrate(dt float64) {
	dp := e.perturbation()
	for _, m := range e.machines {
		m.step(dp, dt)
	}
	for _, l := range e.loads {
		if !l.commanded {
			l.response.step(dp, dt)
			l.p = l.response.value
		}
	}
	for _, br := range e.branches {
		br.step(dp, dt)
	}
	e.freq.step(dp, dt)
	for _, v := range e.volts {
		v.step(dp, dt)
	}
}

// startRecording freezes the channel list, using every available channel
// when none was planned, and takes the first sample.
func (e *Engine) startRecording() {
	if e.frozen {
		return
	}
	e.frozen = true
	if len(e.channels) == 0 {
		e.channels = e.defaultChannels()
	}
	e.values = make([][]float64, len(e.channels))
	e.record()
}

func (e *Engine) defaultChannels() []network.Channel {
	var out []network.Channel
	if len(e.cs.Buses) > 0 {
		out = append(out, network.Channel{Kind: network.ChannelFrequency, Bus: e.cs.Buses[0].Number})
	}
	for _, b := range e.cs.Buses {
		out = append(out, network.Channel{Kind: network.ChannelVoltage, Bus: b.Number})
	}
	for _, m := range e.cs.Machines {
		out = append(out, network.Channel{Kind: network.ChannelMachinePower, Bus: m.Bus, ID: m.ID})
	}
	for _, br := range e.cs.Branches {
		out = append(out, network.Channel{Kind: network.ChannelBranchPower, Bus: br.FromBus, ToBus: br.ToBus})
	}
	for _, l := range e.cs.Loads {
		out = append(out, network.Channel{Kind: network.ChannelLoadPower, Bus: l.Bus, ID: l.ID})
	}
	return out
}

func (e *Engine) knownChannel(ch network.Channel) bool {
	switch ch.Kind {
	case network.ChannelFrequency, network.ChannelVoltage:
		_, ok := e.volts[ch.Bus]
		return ok
	case network.ChannelMachinePower:
		_, ok := e.machines[elemKey{ch.Bus, ch.ID}]
		return ok
	case network.ChannelBranchPower:
		_, ok := e.branches[branchKey{ch.Bus, ch.ToBus}]
		if !ok {
			_, ok = e.branches[branchKey{ch.ToBus, ch.Bus}]
		}
		return ok
	case network.ChannelLoadPower:
		_, ok := e.loads[elemKey{ch.Bus, ch.ID}]
		return ok
	default:
		return false
	}
}

// channelValue returns the recorded value of ch in engine units: per-unit
// deviation for frequency, per-unit voltage, MW for branch flows and
// per-unit on a 100 MVA base for machine and load powers.
func (e *Engine) channelValue(ch network.Channel) float64 {
	switch ch.Kind {
	case network.ChannelFrequency:
		return e.freq.value
	case network.ChannelVoltage:
		return e.volts[ch.Bus].value
	case network.ChannelMachinePower:
		return e.machines[elemKey{ch.Bus, ch.ID}].value / 100
	case network.ChannelBranchPower:
		if br, ok := e.branches[branchKey{ch.Bus, ch.ToBus}]; ok {
			return br.value
		}
		return -e.branches[branchKey{ch.ToBus, ch.Bus}].value
	case network.ChannelLoadPower:
		return e.loads[elemKey{ch.Bus, ch.ID}].p / 100
	default:
		return 0
	}
}

func (e *Engine) record() {
	e.samples = append(e.samples, e.t)
	for i, ch := range e.channels {
		e.values[i] = append(e.values[i], e.channelValue(ch))
	}
}
