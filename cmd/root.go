package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/config"
	coremon "github.com/kilianp07/lddl/core/monitoring"
	"github.com/kilianp07/lddl/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "lddl",
	Short:         "Large dynamic load oscillation risk assessment",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults and LDDL_ environment when empty)")
}

// Execute runs the CLI.
func Execute() error {
	defer coremon.Flush(2 * time.Second)
	return rootCmd.Execute()
}

// loadConfig reads the configuration and installs the error monitor.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	return cfg, nil
}
