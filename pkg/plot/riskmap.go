package plot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/network"
)

// HasCoordinates reports whether any bus of the index carries a location.
func HasCoordinates(buses network.BusIndex) bool {
	for _, b := range buses {
		if b.HasCoords {
			return true
		}
	}
	return false
}

// RiskMap places the impacted generators, loads and tie-line ends on a
// longitude/latitude plane, with the perturbation source as its own
// series. Elements whose buses have no coordinates are skipped.
func RiskMap(w io.Writer, rep impact.Report, buses network.BusIndex) error {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Locations with amplitudes >%g MW", rep.ThresholdMW),
			Subtitle: fmt.Sprintf("source at bus %d", rep.SourceBus),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Type: "value"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
	)
	point := func(bus int, label, symbol string, size int) (opts.ScatterData, bool) {
		b, ok := buses[bus]
		if !ok || !b.HasCoords {
			return opts.ScatterData{}, false
		}
		return opts.ScatterData{Name: label, Value: []float64{b.Lon, b.Lat}, Symbol: symbol, SymbolSize: size}, true
	}

	var src []opts.ScatterData
	if p, ok := point(rep.SourceBus, fmt.Sprintf("source %d", rep.SourceBus), "rect", 20); ok {
		src = append(src, p)
	}
	sc.AddSeries("Source", src)

	var gens, loads, lines []opts.ScatterData
	for _, imp := range rep.Generators {
		if p, ok := point(imp.Bus, label(imp), "triangle", symbolSize(imp.AmplitudeMW, rep.ThresholdMW)); ok {
			gens = append(gens, p)
		}
	}
	for _, imp := range rep.Loads {
		if p, ok := point(imp.Bus, label(imp), "roundRect", symbolSize(imp.AmplitudeMW, rep.ThresholdMW)); ok {
			loads = append(loads, p)
		}
	}
	for _, imp := range rep.Lines {
		for _, b := range imp.Buses() {
			if p, ok := point(b, label(imp), "circle", 8); ok {
				lines = append(lines, p)
			}
		}
	}
	sc.AddSeries("Generator", gens)
	sc.AddSeries("Load", loads)
	sc.AddSeries("Line end", lines)
	return sc.Render(w)
}

func label(imp impact.Impact) string {
	return fmt.Sprintf("%s %.1f MW", imp.Name, imp.AmplitudeMW)
}

// symbolSize grows with the amplitude relative to the threshold.
func symbolSize(amp, threshold float64) int {
	if threshold <= 0 {
		return 14
	}
	size := int(10 * amp / threshold)
	if size < 10 {
		size = 10
	}
	if size > 40 {
		size = 40
	}
	return size
}
