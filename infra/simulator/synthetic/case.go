package synthetic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lddl/core/network"
)

// BusModel is a bus of the synthetic case. VoltSens is the per-unit voltage
// drop per 100 MW of perturbation.
type BusModel struct {
	Number   int     `json:"number" yaml:"number"`
	Name     string  `json:"name" yaml:"name"`
	BaseKV   float64 `json:"base_kv" yaml:"base_kv"`
	Zone     int     `json:"zone" yaml:"zone"`
	Area     int     `json:"area" yaml:"area"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lon      float64 `json:"lon" yaml:"lon"`
	VoltSens float64 `json:"volt_sens" yaml:"volt_sens"`
}

// MachineModel is a generator picking up Gain MW for every MW of
// perturbation through a first-order lag of time constant TauS.
type MachineModel struct {
	Bus    int     `json:"bus" yaml:"bus"`
	ID     string  `json:"id" yaml:"id"`
	PGenMW float64 `json:"pgen_mw" yaml:"pgen_mw"`
	Gain   float64 `json:"gain" yaml:"gain"`
	TauS   float64 `json:"tau_s" yaml:"tau_s"`
}

// LoadModel is a load. Loads that are never commanded follow the
// perturbation with Gain and TauS like machines.
type LoadModel struct {
	Bus   int     `json:"bus" yaml:"bus"`
	ID    string  `json:"id" yaml:"id"`
	PMW   float64 `json:"p_mw" yaml:"p_mw"`
	QMVAr float64 `json:"q_mvar" yaml:"q_mvar"`
	Gain  float64 `json:"gain" yaml:"gain"`
	TauS  float64 `json:"tau_s" yaml:"tau_s"`
}

// BranchModel is a line whose flow changes by Gain MW per MW of
// perturbation.
type BranchModel struct {
	FromBus int     `json:"from_bus" yaml:"from_bus"`
	ToBus   int     `json:"to_bus" yaml:"to_bus"`
	Circuit string  `json:"circuit" yaml:"circuit"`
	FlowMW  float64 `json:"flow_mw" yaml:"flow_mw"`
	Gain    float64 `json:"gain" yaml:"gain"`
	TauS    float64 `json:"tau_s" yaml:"tau_s"`
}

// Case is a synthetic network with its dynamic response parameters.
type Case struct {
	Buses    []BusModel     `json:"buses" yaml:"buses"`
	Machines []MachineModel `json:"machines" yaml:"machines"`
	Loads    []LoadModel    `json:"loads" yaml:"loads"`
	Branches []BranchModel  `json:"branches" yaml:"branches"`
}

// LoadCase reads a Case from a JSON or YAML file.
func LoadCase(path string) (Case, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Case{}, err
	}
	var c Case
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &c)
	case ".json":
		err = json.Unmarshal(b, &c)
	default:
		return Case{}, fmt.Errorf("unsupported case format: %s", ext)
	}
	if err != nil {
		return Case{}, fmt.Errorf("decode case %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate checks that every element references a known bus.
func (c Case) Validate() error {
	if len(c.Buses) == 0 {
		return fmt.Errorf("case has no buses")
	}
	known := make(map[int]struct{}, len(c.Buses))
	for _, b := range c.Buses {
		known[b.Number] = struct{}{}
	}
	check := func(kind string, bus int) error {
		if _, ok := known[bus]; !ok {
			return fmt.Errorf("%s references unknown bus %d", kind, bus)
		}
		return nil
	}
	for _, m := range c.Machines {
		if err := check("machine "+m.ID, m.Bus); err != nil {
			return err
		}
	}
	for _, l := range c.Loads {
		if err := check("load "+l.ID, l.Bus); err != nil {
			return err
		}
	}
	for _, br := range c.Branches {
		if err := check("branch", br.FromBus); err != nil {
			return err
		}
		if err := check("branch", br.ToBus); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the static network view of the case.
func (c Case) Snapshot() network.Snapshot {
	var snap network.Snapshot
	for _, b := range c.Buses {
		snap.Buses = append(snap.Buses, network.Bus{
			Number: b.Number, Name: b.Name, BaseKV: b.BaseKV, Zone: b.Zone, Area: b.Area,
			Lat: b.Lat, Lon: b.Lon, HasCoords: b.Lat != 0 || b.Lon != 0,
		})
	}
	for _, m := range c.Machines {
		snap.Machines = append(snap.Machines, network.Machine{Bus: m.Bus, ID: m.ID, PGenMW: m.PGenMW})
	}
	for _, l := range c.Loads {
		snap.Loads = append(snap.Loads, network.Load{Bus: l.Bus, ID: l.ID, PLoad: l.PMW})
	}
	for _, br := range c.Branches {
		snap.Branches = append(snap.Branches, network.Branch{FromBus: br.FromBus, ToBus: br.ToBus, Circuit: br.Circuit})
	}
	return snap
}

// DefaultCase is a two-area demo network with a data-center load at bus
// 1001 in zone 1 of area 1.
func DefaultCase() Case {
	return Case{
		Buses: []BusModel{
			{Number: 1001, Name: "DC_LOAD", BaseKV: 345, Zone: 1, Area: 1, Lat: 39.04, Lon: -77.49, VoltSens: 0.02},
			{Number: 1002, Name: "GEN_A", BaseKV: 345, Zone: 1, Area: 1, Lat: 39.10, Lon: -77.60, VoltSens: 0.015},
			{Number: 1003, Name: "GEN_B", BaseKV: 230, Zone: 2, Area: 1, Lat: 38.90, Lon: -77.90, VoltSens: 0.01},
			{Number: 1004, Name: "SUB_NORTH", BaseKV: 138, Zone: 1, Area: 1, Lat: 39.30, Lon: -77.40, VoltSens: 0.008},
			{Number: 2001, Name: "REMOTE_GEN", BaseKV: 500, Zone: 5, Area: 2, Lat: 40.20, Lon: -79.00, VoltSens: 0.004},
			{Number: 2002, Name: "REMOTE_LOAD", BaseKV: 230, Zone: 5, Area: 2, Lat: 40.40, Lon: -79.90, VoltSens: 0.003},
		},
		Machines: []MachineModel{
			{Bus: 1002, ID: "1", PGenMW: 400, Gain: 0.45, TauS: 0.8},
			{Bus: 1003, ID: "1", PGenMW: 250, Gain: 0.25, TauS: 1.2},
			{Bus: 1004, ID: "1", PGenMW: 20, Gain: 0.02, TauS: 0.5},
			{Bus: 2001, ID: "1", PGenMW: 800, Gain: 0.28, TauS: 2.0},
		},
		Loads: []LoadModel{
			{Bus: 1001, ID: "1", PMW: 300, QMVAr: 30},
			{Bus: 1002, ID: "1", PMW: 150, QMVAr: 20, Gain: -0.02, TauS: 0.3},
			{Bus: 2002, ID: "1", PMW: 500, QMVAr: 60, Gain: -0.01, TauS: 0.3},
		},
		Branches: []BranchModel{
			{FromBus: 1001, ToBus: 1002, Circuit: "1", FlowMW: -120, Gain: -0.6, TauS: 0.6},
			{FromBus: 1002, ToBus: 1003, Circuit: "1", FlowMW: 60, Gain: -0.25, TauS: 1.0},
			{FromBus: 1002, ToBus: 1004, Circuit: "1", FlowMW: 10, Gain: -0.01, TauS: 0.5},
			{FromBus: 1003, ToBus: 2001, Circuit: "1", FlowMW: -140, Gain: -0.28, TauS: 1.5},
			{FromBus: 2001, ToBus: 2002, Circuit: "1", FlowMW: 480, Gain: -0.01, TauS: 0.4},
		},
	}
}
