package simulator

import (
	"context"

	"github.com/kilianp07/lddl/core/network"
)

// StatusOK is the status code of a successful engine call.
const StatusOK = 0

// ChannelData is the recorded channel output of a run. Values[i] holds the
// samples of channel IDs[i], aligned with Time.
type ChannelData struct {
	IDs    []string
	Time   []float64
	Values [][]float64
}

// Engine is a stateful dynamic simulation session. Calls are issued from a
// single goroutine; simulation time only moves forward.
type Engine interface {
	// Init prepares the case for a dynamic run (case loading, initial
	// conditions, channel setup).
	Init(ctx context.Context) error
	// Close releases the engine resources.
	Close() error
	// AdvanceTo runs the simulation until timeS holding every setpoint.
	AdvanceTo(timeS float64) int
	// SetLoadSetpoint changes the active and reactive power of a load.
	SetLoadSetpoint(bus int, id string, activeMW, reactiveMVAr float64) int
	// LoadIDs lists the identifiers of the loads connected to bus.
	LoadIDs(bus int) ([]string, int)
	// QueryLoadActivePower returns the power the load draws at the current
	// simulation time in MW + j MVAr, including any setpoint applied so far.
	QueryLoadActivePower(bus int, id string) (complex128, int)
	// ChannelSeries returns every channel recorded so far.
	ChannelSeries() (ChannelData, int)
}

// NetworkReader is implemented by engines able to describe the loaded case.
type NetworkReader interface {
	Snapshot() (network.Snapshot, error)
}

// ChannelPlanner is implemented by engines whose recorded channels can be
// chosen before the run starts.
type ChannelPlanner interface {
	AddChannel(ch network.Channel) error
}
