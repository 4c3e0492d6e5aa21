package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/report"
)

var replayCmd = &cobra.Command{
	Use:   "replay RUN_ID",
	Short: "Recompute a stored run and check it reproduces",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(_ *cobra.Command, args []string) error {
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
	rep, err := svc.Replay(ctx, args[0])
	if err != nil {
		return fmt.Errorf("replay %s: %w", args[0], err)
	}

	fmt.Println()
	report.Replay(os.Stdout, rep)
	fmt.Println()
	if !rep.Consistent() {
		return errors.New("replay diverged from stored history")
	}
	return nil
}
