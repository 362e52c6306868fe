// Package channels turns raw engine channel output into classified signal
// series: generator injections, load injections and tie-line flows.
package channels

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/simulator"
)

// PerUnitScale converts per-unit machine and load powers to MW.
const PerUnitScale = 100.0

var (
	tieLineRe   = regexp.MustCompile(`^POWR\s*(\d+)\s*TO\s*(\d+)`)
	generatorRe = regexp.MustCompile(`^POWR\s*(\d+)`)
	loadRe      = regexp.MustCompile(`^PLOD\s*(\d+)`)
	voltageRe   = regexp.MustCompile(`^VOLT\s*(\d+)`)
)

// Signal is a channel kept outside the oscillation categories.
type Signal struct {
	Name   string
	Values []float64
}

// Table is the classified content of one run output. Every series shares
// the de-duplicated Time vector.
type Table struct {
	Time   []float64
	Series []model.SignalSeries
	Other  []Signal
}

// ByKind returns the series of one category in channel order.
func (t Table) ByKind(k model.SignalKind) []model.SignalSeries {
	var out []model.SignalSeries
	for _, s := range t.Series {
		if s.Kind == k {
			out = append(out, s)
		}
	}
	return out
}

// Voltages returns the bus voltage channels.
func (t Table) Voltages() []Signal {
	var out []Signal
	for _, o := range t.Other {
		if voltageRe.MatchString(o.Name) {
			out = append(out, o)
		}
	}
	return out
}

// Options restrict the extracted load channels.
type Options struct {
	// MonitoredLoadBuses keeps only load channels on these buses plus the
	// source bus. Nil keeps every load.
	MonitoredLoadBuses []int
	SourceBus          int
}

// Classify identifies the category of a channel name and the buses it
// refers to. ok is false for channels outside the three categories.
func Classify(name string) (kind model.SignalKind, from, to int, id string, ok bool) {
	name = strings.TrimSpace(name)
	if m := tieLineRe.FindStringSubmatchIndex(name); m != nil {
		from, _ = strconv.Atoi(name[m[2]:m[3]])
		to, _ = strconv.Atoi(name[m[4]:m[5]])
		return model.KindTieLine, from, to, suffixID(name[m[1]:]), true
	}
	if m := generatorRe.FindStringSubmatchIndex(name); m != nil {
		from, _ = strconv.Atoi(name[m[2]:m[3]])
		return model.KindGenerator, from, 0, suffixID(name[m[1]:]), true
	}
	if m := loadRe.FindStringSubmatchIndex(name); m != nil {
		from, _ = strconv.Atoi(name[m[2]:m[3]])
		return model.KindLoad, from, 0, suffixID(name[m[1]:]), true
	}
	return 0, 0, 0, "", false
}

// suffixID extracts the element ID trailing a channel name: the text of the
// first bracket pair, such as the "1" of "POWR 101[1]" or the "GEN1 13.8" of
// "POWR 101[GEN1 13.8]1". Without brackets the trimmed rest is the ID.
func suffixID(rest string) string {
	open := strings.Index(rest, "[")
	if open < 0 {
		return strings.TrimSpace(rest)
	}
	end := strings.Index(rest[open+1:], "]")
	if end < 0 {
		return strings.TrimSpace(rest[open+1:])
	}
	return strings.TrimSpace(rest[open+1 : open+1+end])
}

// Extract de-duplicates the time vector (first occurrence wins), classifies
// every channel and scales generator and load values to MW.
func Extract(data simulator.ChannelData, opts Options) (Table, error) {
	if len(data.IDs) != len(data.Values) {
		return Table{}, fmt.Errorf("channel output has %d ids for %d value vectors", len(data.IDs), len(data.Values))
	}
	for i, v := range data.Values {
		if len(v) != len(data.Time) {
			return Table{}, fmt.Errorf("channel %q has %d samples for %d timestamps", data.IDs[i], len(v), len(data.Time))
		}
	}
	keep := increasingIndex(data.Time)
	tbl := Table{Time: pick(data.Time, keep)}

	var loadFilter map[int]struct{}
	if opts.MonitoredLoadBuses != nil {
		loadFilter = make(map[int]struct{}, len(opts.MonitoredLoadBuses)+1)
		for _, b := range opts.MonitoredLoadBuses {
			loadFilter[b] = struct{}{}
		}
		loadFilter[opts.SourceBus] = struct{}{}
	}

	for i, raw := range data.IDs {
		name := strings.TrimSpace(raw)
		values := pick(data.Values[i], keep)
		kind, from, to, id, ok := Classify(name)
		if !ok {
			tbl.Other = append(tbl.Other, Signal{Name: name, Values: values})
			continue
		}
		if kind == model.KindLoad && loadFilter != nil {
			if _, ok := loadFilter[from]; !ok {
				continue
			}
		}
		s := model.SignalSeries{Name: name, Kind: kind, ID: id, Time: tbl.Time, Value: values}
		switch kind {
		case model.KindTieLine:
			s.FromBus, s.ToBus = from, to
		default:
			s.Bus = from
			scale(s.Value, PerUnitScale)
		}
		tbl.Series = append(tbl.Series, s)
	}
	return tbl, nil
}

// increasingIndex returns the indexes of the samples whose time is strictly
// greater than every sample kept before.
func increasingIndex(t []float64) []int {
	idx := make([]int, 0, len(t))
	for i, v := range t {
		if len(idx) > 0 && v <= t[idx[len(idx)-1]] {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

func scale(v []float64, f float64) {
	for i := range v {
		v[i] *= f
	}
}

// Buses returns the sorted set of buses referenced by the table series.
func (t Table) Buses() []int {
	set := map[int]struct{}{}
	for _, s := range t.Series {
		for _, b := range s.Buses() {
			set[b] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}
