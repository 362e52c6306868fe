// Package export writes run inputs and results as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kilianp07/lddl/core/model"
)

// ChannelsFile returns the channel output name for a source bus.
func ChannelsFile(bus int) string { return fmt.Sprintf("LDDL_%d.csv", bus) }

// BreakpointsFile returns the schedule name for a source bus.
func BreakpointsFile(bus int) string { return fmt.Sprintf("LDDL_breakpoints_%d.csv", bus) }

// WriteFile creates path and its parent directories and fills it with fn.
func WriteFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteBreakpoints writes the schedule with one breakpoint per row.
func WriteBreakpoints(w io.Writer, bps []model.Breakpoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_s", "setpoint_mw"}); err != nil {
		return err
	}
	for _, bp := range bps {
		if err := cw.Write([]string{formatFloat(bp.TimeS), formatFloat(bp.SetpointMW)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
