package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/api"
	"github.com/talgya/finsim/internal/runs"
	"github.com/talgya/finsim/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := api.NewHub()
	go hub.Run()
	defer hub.Close()

	svc, err := newService(cfg, st, runs.WithNotifier(hub))
	if err != nil {
		return err
	}

	if cfg.Server.AdminKey == "" {
		slog.Warn("FINSIM_SERVER_ADMIN_KEY not set, autopilot control will be disabled")
	}
	server := &api.Server{
		Runs:     svc,
		Hub:      hub,
		Profiles: cfg.Profiles,
		AdminKey: cfg.Server.AdminKey,
		RelayKey: cfg.Server.RelayKey,
	}

	sched := scheduler.NewScheduler(ctx, svc)
	sched.Timeout = cfg.Autopilot.Timeout
	if cfg.Server.CreateRate > 0 {
		server.CreateLimiter = api.NewRateLimiter(cfg.Server.CreateRate, cfg.Server.CreateWindow)
		if err := sched.RegisterFunc("0 */5 * * * *", "rate limit sweep", server.CreateLimiter.Sweep); err != nil {
			return err
		}
	}
	if cfg.Autopilot.Enabled {
		if err := sched.RegisterAutopilot(cfg.Autopilot.Cron); err != nil {
			return err
		}
		slog.Info("autopilot enabled", "cron", cfg.Autopilot.Cron)
	}
	sched.Start()
	defer sched.Stop()

	fmt.Printf("finsim API: http://localhost%s/api/v1/runs (Ctrl+C to stop)\n", cfg.Server.Addr)
	return server.ListenAndServe(ctx, cfg.Server.Addr)
}
