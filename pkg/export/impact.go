package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/model"
)

// AmplitudeColumn is the amplitude header of the impacted element tables.
const AmplitudeColumn = "Oscillation amplitude (MW)"

// ImpactFile returns the file name of the impacted element table of k.
func ImpactFile(k model.SignalKind) string {
	switch k {
	case model.KindGenerator:
		return "Impacted_generators.csv"
	case model.KindLoad:
		return "Impacted_loads.csv"
	default:
		return "Impacted_lines.csv"
	}
}

func impactColumn(k model.SignalKind) string {
	switch k {
	case model.KindGenerator:
		return "Gen Number"
	case model.KindLoad:
		return "Load Number"
	default:
		return "Line Number"
	}
}

// WriteImpacts writes the ranked elements of one category. Generators and
// loads are identified by bus number and tie-lines by channel name. The
// header is written even when list is empty.
func WriteImpacts(w io.Writer, k model.SignalKind, list []impact.Impact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{impactColumn(k), AmplitudeColumn}); err != nil {
		return err
	}
	for _, imp := range list {
		if err := cw.Write([]string{imp.Location(), formatFloat(imp.AmplitudeMW)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SummaryFile returns the summary file name for a source bus.
func SummaryFile(bus int) string {
	return fmt.Sprintf("LDDL_summary_%d.csv", bus)
}

// SummaryHeader returns the summary columns for a threshold.
func SummaryHeader(threshold float64) []string {
	return []string{
		"Category",
		fmt.Sprintf("Instances >%g MW", threshold),
		"Instances in Source Zone",
		"Instances Outside Source Zone",
		"Max Osc. in Source Zone (MW)",
		"Max Osc. outside Source Zone (MW)",
		"Max Loc. in Source Zone",
		"Max Loc. outside Source Zone",
	}
}

// WriteSummary writes one row per category of the report summary.
func WriteSummary(w io.Writer, rep impact.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader(rep.ThresholdMW)); err != nil {
		return err
	}
	for _, row := range rep.Summary {
		rec := []string{
			row.Kind.Label(),
			strconv.Itoa(row.Instances),
			strconv.Itoa(row.InZone),
			strconv.Itoa(row.OutZone),
			formatFloat(row.MaxInZoneMW),
			formatFloat(row.MaxOutZoneMW),
			row.MaxInZoneLoc,
			row.MaxOutZoneLoc,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
