package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/report"
)

var (
	flagShowHistory bool
	flagShowMonth   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		list, err := st.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Print("\n  No runs yet. Start one with: finsim simulate\n\n")
			return nil
		}
		fmt.Println()
		report.Runs(os.Stdout, list, time.Now())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a run's current month, its history, or one month's events",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&flagShowHistory, "history", false, "Show every recorded month")
	showCmd.Flags().IntVar(&flagShowMonth, "month", -1, "Show the events that led to this month")
	rootCmd.AddCommand(runsCmd, showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := newService(cfg, st)
	if err != nil {
		return err
	}
	runID := args[0]

	fmt.Println()
	switch {
	case flagShowMonth >= 0:
		view, err := svc.Month(ctx, runID, flagShowMonth)
		if err != nil {
			return err
		}
		fmt.Print(report.Comparison(view.Record.Player, view.Record.Guru))
		report.Events(os.Stdout, view.Record.Events)
		if view.GuruDecisions != nil {
			for _, line := range view.GuruDecisions.Rationale {
				fmt.Printf("    • %s\n", line)
			}
		}
	case flagShowHistory:
		months, err := svc.History(ctx, runID)
		if err != nil {
			return err
		}
		report.History(os.Stdout, months)
	default:
		state, err := svc.State(ctx, runID)
		if err != nil {
			return err
		}
		report.State(os.Stdout, state)
	}
	fmt.Println()
	return nil
}
