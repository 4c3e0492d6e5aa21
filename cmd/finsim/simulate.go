package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/report"
	"github.com/talgya/finsim/internal/runs"
)

var (
	flagMonths   int
	flagStrategy string
	flagMode     string
	flagKey      string
	flagInterval time.Duration
	flagHistory  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a scripted run against the guru",
	Long: "Start a run and play it with a scripted strategy (" + strings.Join(runs.StrategyNames(), ", ") + ").\n" +
		"The run is stored, so it can be inspected or replayed afterwards.",
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&flagMonths, "months", "m", 36, "Months to play")
	simulateCmd.Flags().StringVarP(&flagStrategy, "strategy", "s", "mirror", "Player strategy")
	simulateCmd.Flags().StringVar(&flagMode, "mode", agents.ModeNormal, "Difficulty profile")
	simulateCmd.Flags().StringVar(&flagKey, "key", "", "Reproducibility key (default: the run ID)")
	simulateCmd.Flags().DurationVar(&flagInterval, "interval", 0, "Wall time per month, e.g. 500ms")
	simulateCmd.Flags().BoolVar(&flagHistory, "history", false, "Print every month when done")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := newService(cfg, st)
	if err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Playing %d months as %q...\n", flagMonths, flagStrategy)
	}
	final, err := svc.Play(ctx, runs.Simulation{
		Request:  runs.StartRequest{Mode: flagMode, Key: flagKey},
		Months:   flagMonths,
		Strategy: flagStrategy,
		Interval: flagInterval,
		OnYear: func(st *runs.State) {
			if !flagQuiet {
				fmt.Fprintln(os.Stderr, report.Verdict(st.Month))
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Println()
	report.State(os.Stdout, final)
	if flagHistory {
		months, err := svc.History(ctx, final.Run.ID)
		if err != nil {
			return err
		}
		report.History(os.Stdout, months)
	} else {
		fmt.Println(report.Verdict(final.Month))
	}
	fmt.Printf("\n  Replay with: finsim replay %s\n\n", final.Run.ID)
	return nil
}
