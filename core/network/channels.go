package network

import "fmt"

// ChannelKind is the quantity recorded by a simulation channel.
type ChannelKind int

const (
	ChannelFrequency ChannelKind = iota
	ChannelVoltage
	ChannelMachinePower
	ChannelBranchPower
	ChannelLoadPower
)

// Channel identifies one recorded quantity.
type Channel struct {
	Kind  ChannelKind
	Bus   int
	ToBus int
	ID    string
}

// Name returns the channel identifier as written in the channel output.
func (c Channel) Name() string {
	switch c.Kind {
	case ChannelFrequency:
		return fmt.Sprintf("FREQ %d", c.Bus)
	case ChannelVoltage:
		return fmt.Sprintf("VOLT %d", c.Bus)
	case ChannelMachinePower:
		return fmt.Sprintf("POWR %d[%s]", c.Bus, c.ID)
	case ChannelBranchPower:
		return fmt.Sprintf("POWR %d TO %d", c.Bus, c.ToBus)
	case ChannelLoadPower:
		return fmt.Sprintf("PLOD %d[%s]", c.Bus, c.ID)
	default:
		return fmt.Sprintf("CHAN %d", c.Bus)
	}
}

// ChannelPlan lists the channels to record for a selection: frequency at the
// source bus, voltage at every monitored bus, active power of every machine
// on selected generator buses, flow on selected lines and active power of
// every load on selected load buses and on the source bus.
func ChannelPlan(snap Snapshot, sel Selection, sourceBus int) []Channel {
	plan := []Channel{{Kind: ChannelFrequency, Bus: sourceBus}}
	for _, b := range sel.MonitoredBuses() {
		plan = append(plan, Channel{Kind: ChannelVoltage, Bus: b})
	}
	gens := toSet(sel.GenBuses)
	for _, m := range snap.Machines {
		if _, ok := gens[m.Bus]; ok {
			plan = append(plan, Channel{Kind: ChannelMachinePower, Bus: m.Bus, ID: m.ID})
		}
	}
	for _, l := range sel.Lines {
		plan = append(plan, Channel{Kind: ChannelBranchPower, Bus: l.FromBus, ToBus: l.ToBus})
	}
	loads := toSet(sel.LoadBuses)
	loads[sourceBus] = struct{}{}
	for _, l := range snap.Loads {
		if _, ok := loads[l.Bus]; ok {
			plan = append(plan, Channel{Kind: ChannelLoadPower, Bus: l.Bus, ID: l.ID})
		}
	}
	return plan
}

func toSet(in []int) map[int]struct{} {
	set := make(map[int]struct{}, len(in))
	for _, v := range in {
		set[v] = struct{}{}
	}
	return set
}
