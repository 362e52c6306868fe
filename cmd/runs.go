package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lddl/config"
	"github.com/kilianp07/lddl/core/model"
	"github.com/kilianp07/lddl/core/runlog"
)

var (
	runsBus   int
	runsShape string
	runsSince time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Run log related commands",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recorded runs",
	RunE:  listRuns,
}

func init() {
	runsLsCmd.Flags().IntVar(&runsBus, "bus", 0, "only runs at this bus")
	runsLsCmd.Flags().StringVar(&runsShape, "shape", "", "only runs of this shape")
	runsLsCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs newer than this duration")
	runsCmd.AddCommand(runsLsCmd)
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("run log disabled: set run_log.backend")
	}
	defer store.Close()

	q := runlog.Query{Bus: runsBus}
	if runsShape != "" {
		if q.Shape, err = model.ParseShape(runsShape); err != nil {
			return err
		}
	}
	if runsSince > 0 {
		q.Start = time.Now().Add(-runsSince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tBUS\tSHAPE\tBASE MW\tBREAKPOINTS\tSTATUS")
	for _, r := range recs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.1f\t%d\t%s\n",
			r.RunID, r.Timestamp.Format(time.RFC3339), r.Bus, r.Shape, r.BaseLoadMW, r.Breakpoints, status)
	}
	return tw.Flush()
}
