package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/scheduler"
	"github.com/kilianp07/lddl/pkg/export"
)

var scenarioPath string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the breakpoint schedule of a scenario as CSV",
	RunE:  printSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file, overriding the configured scenario")
	rootCmd.AddCommand(scheduleCmd)
}

func printSchedule(cmd *cobra.Command, args []string) error {
	var sc model.ScenarioConfig
	if scenarioPath != "" {
		var err error
		if sc, err = scheduler.LoadScenario(scenarioPath); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
	} else {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		sc = cfg.Scenario
	}
	bps, err := scheduler.Schedule(sc)
	if err != nil {
		return err
	}
	return export.WriteBreakpoints(cmd.OutOrStdout(), bps)
}
