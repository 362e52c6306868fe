package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/lddl/core/simulator"
)

// WriteChannels writes the channel output as a table whose first column is
// the simulation time followed by one column per channel. Only the first
// sample of a repeated or backward timestamp is written, so the table has
// one row per time.
func WriteChannels(w io.Writer, data simulator.ChannelData) error {
	if len(data.IDs) != len(data.Values) {
		return fmt.Errorf("channel output has %d ids for %d value vectors", len(data.IDs), len(data.Values))
	}
	for j, v := range data.Values {
		if len(v) < len(data.Time) {
			return fmt.Errorf("channel %q has %d samples for %d timestamps", data.IDs[j], len(v), len(data.Time))
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, data.IDs...)); err != nil {
		return err
	}
	row := make([]string, len(data.IDs)+1)
	last := -1
	for i, t := range data.Time {
		if last >= 0 && t <= data.Time[last] {
			continue
		}
		last = i
		row[0] = formatFloat(t)
		for j, v := range data.Values {
			row[j+1] = formatFloat(v[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadChannels parses a table written by WriteChannels or exported by an
// external engine. Header names are trimmed.
func ReadChannels(r io.Reader) (simulator.ChannelData, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return simulator.ChannelData{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 1 {
		return simulator.ChannelData{}, fmt.Errorf("empty header")
	}
	data := simulator.ChannelData{
		IDs:    make([]string, len(header)-1),
		Values: make([][]float64, len(header)-1),
	}
	for i, h := range header[1:] {
		data.IDs[i] = strings.TrimSpace(h)
	}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return simulator.ChannelData{}, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return simulator.ChannelData{}, fmt.Errorf("line %d: time: %w", line, err)
		}
		data.Time = append(data.Time, t)
		for i, raw := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return simulator.ChannelData{}, fmt.Errorf("line %d: %s: %w", line, data.IDs[i], err)
			}
			data.Values[i] = append(data.Values[i], v)
		}
	}
	return data, nil
}
