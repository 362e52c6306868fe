package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kilianp07/lddl/core/network"
)

// BusSummaryFile is the name of the monitored bus table.
const BusSummaryFile = "sys_bus_summary.csv"

// LinesFile is the name of the monitored line table.
const LinesFile = "sys_line_summary.csv"

// WriteBusSummary lists every monitored bus of the selection with its
// description. Buses missing from the index keep empty name and voltage
// columns.
func WriteBusSummary(w io.Writer, sel network.Selection, buses network.BusIndex) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"BUS_NUMBER", "BUS_NAME", "BASE_KV", "ZONE", "AREA"}); err != nil {
		return err
	}
	for _, n := range sel.MonitoredBuses() {
		rec := []string{strconv.Itoa(n), "", "", "", ""}
		if b, ok := buses[n]; ok {
			rec[1] = b.Name
			rec[2] = formatFloat(b.BaseKV)
			rec[3] = strconv.Itoa(b.Zone)
			rec[4] = strconv.Itoa(b.Area)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLines lists the selected lines.
func WriteLines(w io.Writer, lines []network.Branch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"FROMBUS", "TOBUS", "CIRCUIT"}); err != nil {
		return err
	}
	for _, l := range lines {
		if err := cw.Write([]string{strconv.Itoa(l.FromBus), strconv.Itoa(l.ToBus), l.Circuit}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
