package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/core/channels"
	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/network"
	"github.com/kilianp07/lddl/core/oscillation"
	"github.com/kilianp07/lddl/pkg/export"
)

var (
	analyzeCSV string
	analyzeBus int
	analyzeOut string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rank the oscillations of a recorded channel file",
	RunE:  analyzeFile,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "channel output written by a previous run")
	analyzeCmd.Flags().IntVar(&analyzeBus, "bus", 0, "bus that carried the perturbation")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output directory (defaults to the directory of --csv)")
	_ = analyzeCmd.MarkFlagRequired("csv")
	_ = analyzeCmd.MarkFlagRequired("bus")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeFile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Analysis.BusFile == "" {
		return errors.New("analysis.bus_file is required to rank a recorded run")
	}
	buses, err := network.LoadBusCSV(cfg.Analysis.BusFile)
	if err != nil {
		return err
	}
	f, err := os.Open(analyzeCSV)
	if err != nil {
		return err
	}
	data, err := export.ReadChannels(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", analyzeCSV, err)
	}

	tbl, err := channels.Extract(data, channels.Options{SourceBus: analyzeBus})
	if err != nil {
		return err
	}
	res := oscillation.Analyze(tbl, cfg.Scenario.StartTimeS, cfg.Scenario.FreqPrimaryHz)
	if err := res.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	rep, err := impact.Rank(res.Amplitudes, cfg.Analysis.ThresholdMW, buses, analyzeBus)
	if err != nil {
		return err
	}

	dir := analyzeOut
	if dir == "" {
		dir = filepath.Dir(analyzeCSV)
	}
	for _, k := range model.Kinds {
		list := rep.ByKind(k)
		if err := export.WriteFile(filepath.Join(dir, export.ImpactFile(k)), func(w io.Writer) error {
			return export.WriteImpacts(w, k, list)
		}); err != nil {
			return err
		}
	}
	if err := export.WriteFile(filepath.Join(dir, export.SummaryFile(analyzeBus)), func(w io.Writer) error {
		return export.WriteSummary(w, rep)
	}); err != nil {
		return err
	}
	return export.WriteSummary(cmd.OutOrStdout(), rep)
}
