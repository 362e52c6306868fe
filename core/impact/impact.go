// Package impact ranks oscillating elements above a MW threshold and
// summarizes them by location relative to the perturbation source.
package impact

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/network"
)

// NoLocation marks an empty location in a summary row.
const NoLocation = "None"

// UnknownSourceBusError reports a source bus missing from the bus table.
type UnknownSourceBusError struct {
	Bus int
}

func (e *UnknownSourceBusError) Error() string {
	return fmt.Sprintf("source bus %d not found in bus table", e.Bus)
}

// Impact is an element whose oscillation exceeds the threshold.
type Impact struct {
	model.OscillationResult
	InSourceZone bool `json:"in_source_zone"`
}

// Location identifies the element in reports: the bus number for
// generators and loads, the channel name for tie-lines.
func (i Impact) Location() string {
	if i.Kind == model.KindTieLine {
		return i.Name
	}
	return strconv.Itoa(i.Bus)
}

// ZoneSummary is one category row of the summary table.
type ZoneSummary struct {
	Kind          model.SignalKind `json:"kind"`
	Instances     int              `json:"instances"`
	InZone        int              `json:"in_zone"`
	OutZone       int              `json:"out_zone"`
	MaxInZoneMW   float64          `json:"max_in_zone_mw"`
	MaxOutZoneMW  float64          `json:"max_out_zone_mw"`
	MaxInZoneLoc  string           `json:"max_in_zone_loc"`
	MaxOutZoneLoc string           `json:"max_out_zone_loc"`
}

// Report is the ranked outcome for one perturbation source.
type Report struct {
	SourceBus   int      `json:"source_bus"`
	ThresholdMW float64  `json:"threshold_mw"`
	Generators  []Impact `json:"generators"`
	Loads       []Impact `json:"loads"`
	Lines       []Impact `json:"lines"`
	// Summary rows in generator, load, tie-line order.
	Summary []ZoneSummary `json:"summary"`
	// UnknownBuses lists buses absent from the bus table; their elements
	// are counted outside the source zone.
	UnknownBuses []int `json:"unknown_buses,omitempty"`
}

// ByKind returns the impact list of one category.
func (r Report) ByKind(k model.SignalKind) []Impact {
	switch k {
	case model.KindGenerator:
		return r.Generators
	case model.KindLoad:
		return r.Loads
	default:
		return r.Lines
	}
}

// Rank keeps the results strictly above threshold, sorts each category by
// decreasing amplitude (equal amplitudes keep their input order) and builds
// the zone summary. A tie-line is inside the source zone when either end
// shares the zone and the area of the source bus.
func Rank(results []model.OscillationResult, threshold float64, buses network.BusIndex, sourceBus int) (Report, error) {
	src, ok := buses[sourceBus]
	if !ok {
		return Report{}, &UnknownSourceBusError{Bus: sourceBus}
	}
	rep := Report{SourceBus: sourceBus, ThresholdMW: threshold}
	unknown := map[int]struct{}{}

	for _, r := range results {
		if !(r.AmplitudeMW > threshold) {
			continue
		}
		imp := Impact{OscillationResult: r}
		for _, b := range r.Buses() {
			if _, known := buses[b]; !known {
				unknown[b] = struct{}{}
				continue
			}
			if buses.SameZoneArea(b, src) {
				imp.InSourceZone = true
			}
		}
		switch r.Kind {
		case model.KindGenerator:
			rep.Generators = append(rep.Generators, imp)
		case model.KindLoad:
			rep.Loads = append(rep.Loads, imp)
		case model.KindTieLine:
			rep.Lines = append(rep.Lines, imp)
		}
	}

	for _, k := range model.Kinds {
		list := rep.ByKind(k)
		sort.SliceStable(list, func(i, j int) bool { return list[i].AmplitudeMW > list[j].AmplitudeMW })
		rep.Summary = append(rep.Summary, summarize(k, list))
	}
	for b := range unknown {
		rep.UnknownBuses = append(rep.UnknownBuses, b)
	}
	sort.Ints(rep.UnknownBuses)
	return rep, nil
}

// summarize expects list sorted by decreasing amplitude so the first
// element of each side is its maximum.
func summarize(k model.SignalKind, list []Impact) ZoneSummary {
	row := ZoneSummary{Kind: k, Instances: len(list), MaxInZoneLoc: NoLocation, MaxOutZoneLoc: NoLocation}
	for _, imp := range list {
		if imp.InSourceZone {
			if row.InZone == 0 {
				row.MaxInZoneMW, row.MaxInZoneLoc = imp.AmplitudeMW, imp.Location()
			}
			row.InZone++
			continue
		}
		if row.OutZone == 0 {
			row.MaxOutZoneMW, row.MaxOutZoneLoc = imp.AmplitudeMW, imp.Location()
		}
		row.OutZone++
	}
	return row
}
