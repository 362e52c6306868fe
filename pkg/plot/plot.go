// Package plot renders run results as standalone HTML charts.
package plot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/oscillation"
)

// MaxPoints bounds the samples drawn per series.
const MaxPoints = 2000

// TimeSeriesFile returns the time series page name for a source bus.
func TimeSeriesFile(bus int) string { return fmt.Sprintf("LDDL_timeseries_%d.html", bus) }

// VoltageFile returns the voltage deviation page name for a source bus.
func VoltageFile(bus int) string { return fmt.Sprintf("voltage_deviations_%d.html", bus) }

// RiskMapFile returns the risk map page name for a source bus.
func RiskMapFile(bus int) string { return fmt.Sprintf("LDDL_risk_map_%d.html", bus) }

// TimeSeries renders the source load and the most oscillating generator,
// load and tie-line, one chart each. Categories without series are skipped.
func TimeSeries(w io.Writer, tbl channels.Table, res oscillation.Result, sourceBus int) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("LDDL time series - bus %d", sourceBus)

	if src, ok := sourceLoad(tbl, sourceBus); ok {
		page.AddCharts(seriesChart("Source: "+src.Name, "MW", tbl.Time, []named{{src.Name, src.Value}}))
	}
	for _, k := range model.Kinds {
		s, ok := mostImpacted(tbl, res.Amplitudes, k)
		if !ok {
			continue
		}
		title := fmt.Sprintf("Most impacted %s: %s", kindTitle(k), s.Name)
		page.AddCharts(seriesChart(title, "MW", tbl.Time, []named{{s.Name, s.Value}}))
	}
	return page.Render(w)
}

// VoltageDeviations renders every voltage channel relative to its first
// sample.
func VoltageDeviations(w io.Writer, tbl channels.Table) error {
	var series []named
	for _, v := range tbl.Voltages() {
		if len(v.Values) == 0 {
			continue
		}
		dev := make([]float64, len(v.Values))
		for i, x := range v.Values {
			dev[i] = x - v.Values[0]
		}
		series = append(series, named{v.Name, dev})
	}
	return seriesChart("Voltage deviations (p.u.)", "p.u.", tbl.Time, series).Render(w)
}

type named struct {
	name   string
	values []float64
}

func seriesChart(title, unit string, t []float64, series []named) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	stride := strideFor(len(t))
	var x []string
	for i := 0; i < len(t); i += stride {
		x = append(x, strconv.FormatFloat(t[i], 'f', 3, 64))
	}
	line.SetXAxis(x)
	for _, s := range series {
		data := make([]opts.LineData, 0, len(x))
		for i := 0; i < len(s.values); i += stride {
			data = append(data, opts.LineData{Value: s.values[i]})
		}
		line.AddSeries(s.name, data)
	}
	return line
}

func strideFor(n int) int {
	if n <= MaxPoints {
		return 1
	}
	return (n + MaxPoints - 1) / MaxPoints
}

// sourceLoad returns the last load series attached to the source bus.
func sourceLoad(tbl channels.Table, bus int) (model.SignalSeries, bool) {
	var out model.SignalSeries
	found := false
	for _, s := range tbl.ByKind(model.KindLoad) {
		if s.Bus == bus {
			out, found = s, true
		}
	}
	return out, found
}

// mostImpacted returns the series of kind k whose amplitude is the largest.
// Ties keep the first series.
func mostImpacted(tbl channels.Table, results []model.OscillationResult, k model.SignalKind) (model.SignalSeries, bool) {
	best := -1
	for i, r := range results {
		if r.Kind != k {
			continue
		}
		if best < 0 || r.AmplitudeMW > results[best].AmplitudeMW {
			best = i
		}
	}
	if best < 0 {
		return model.SignalSeries{}, false
	}
	for _, s := range tbl.ByKind(k) {
		if s.Name == results[best].Name {
			return s, true
		}
	}
	return model.SignalSeries{}, false
}

func kindTitle(k model.SignalKind) string {
	switch k {
	case model.KindGenerator:
		return "Gen"
	case model.KindLoad:
		return "Load"
	default:
		return "Line"
	}
}
