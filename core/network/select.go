package network

import (
	"fmt"
	"sort"
)

// Thresholds bound the elements retained around a perturbing load.
type Thresholds struct {
	GenMW         float64 `json:"gen_mw" koanf:"gen_mw"`
	LoadMW        float64 `json:"load_mw" koanf:"load_mw"`
	BusKV         float64 `json:"bus_kv" koanf:"bus_kv"`
	LineKV        float64 `json:"line_kv" koanf:"line_kv"`
	OutsideLineKV float64 `json:"outside_line_kv" koanf:"outside_line_kv"`
}

// DefaultThresholds returns the usual screening limits.
func DefaultThresholds() Thresholds {
	return Thresholds{GenMW: 50, LoadMW: 100, BusKV: 200, LineKV: 100, OutsideLineKV: 100}
}

// UnknownBusError reports a bus number absent from the snapshot.
type UnknownBusError struct {
	Bus int
}

func (e *UnknownBusError) Error() string {
	return fmt.Sprintf("bus %d not found in network", e.Bus)
}

// Selection lists the elements retained for monitoring.
type Selection struct {
	TargetArea int      `json:"target_area"`
	GenBuses   []int    `json:"gen_buses"`
	LoadBuses  []int    `json:"load_buses"`
	Buses      []int    `json:"buses"`
	Lines      []Branch `json:"lines"`
}

// MonitoredBuses returns the sorted union of every bus touched by the
// selection.
func (s Selection) MonitoredBuses() []int {
	set := map[int]struct{}{}
	for _, group := range [][]int{s.GenBuses, s.LoadBuses, s.Buses} {
		for _, b := range group {
			set[b] = struct{}{}
		}
	}
	for _, l := range s.Lines {
		set[l.FromBus] = struct{}{}
		set[l.ToBus] = struct{}{}
	}
	return sortedKeys(set)
}

// Select keeps generator buses above GenMW of aggregated generation, load
// buses above LoadMW of aggregated load, buses of the target area above
// BusKV, lines inside the target area above LineKV and lines crossing a
// zone or area boundary outside the target area above OutsideLineKV. Line
// voltage is the base voltage of the sending bus.
func Select(snap Snapshot, targetBus int, th Thresholds) (Selection, error) {
	ix := NewBusIndex(snap.Buses)
	target, ok := ix[targetBus]
	if !ok {
		return Selection{}, &UnknownBusError{Bus: targetBus}
	}
	sel := Selection{TargetArea: target.Area}

	gen := map[int]float64{}
	for _, m := range snap.Machines {
		gen[m.Bus] += m.PGenMW
	}
	load := map[int]float64{}
	for _, l := range snap.Loads {
		load[l.Bus] += l.PLoad
	}
	sel.GenBuses = above(gen, th.GenMW)
	sel.LoadBuses = above(load, th.LoadMW)

	for _, b := range snap.Buses {
		if b.Area == target.Area && b.BaseKV > th.BusKV {
			sel.Buses = append(sel.Buses, b.Number)
		}
	}
	sel.Buses = dedupSorted(sel.Buses)

	for _, br := range snap.Branches {
		from, okFrom := ix[br.FromBus]
		to, okTo := ix[br.ToBus]
		if !okFrom || !okTo {
			continue
		}
		inside := from.Area == target.Area && to.Area == target.Area
		crossing := from.Zone != to.Zone || from.Area != to.Area
		switch {
		case inside && from.BaseKV > th.LineKV:
			sel.Lines = append(sel.Lines, br)
		case !inside && crossing && from.BaseKV > th.OutsideLineKV:
			sel.Lines = append(sel.Lines, br)
		}
	}
	return sel, nil
}

func above(m map[int]float64, limit float64) []int {
	set := map[int]struct{}{}
	for bus, v := range m {
		if v > limit {
			set[bus] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func dedupSorted(in []int) []int {
	set := make(map[int]struct{}, len(in))
	for _, v := range in {
		set[v] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
