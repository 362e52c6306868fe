package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/app"
	"github.com/kilianp07/lddl/infra/logger"
)

var runBuses []int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the perturbation study at every target bus",
	RunE:  runStudy,
}

func init() {
	runCmd.Flags().IntSliceVar(&runBuses, "bus", nil, "target buses, overriding target.buses")
	rootCmd.AddCommand(runCmd)
}

func runStudy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(runBuses) > 0 {
		cfg.Target.Buses = runBuses
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	results, err := svc.RunAll(ctx)
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "bus %d: failed: %v\n", r.Bus, r.Err)
			continue
		}
		fmt.Fprintf(out, "bus %d: %d generators, %d loads, %d lines above %g MW -> %s\n",
			r.Bus, len(r.Report.Generators), len(r.Report.Loads), len(r.Report.Lines), r.Report.ThresholdMW, r.OutputDir)
	}
	return err
}
