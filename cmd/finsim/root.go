package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/talgya/finsim/internal/config"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/persistence"
	"github.com/talgya/finsim/internal/runs"
)

var (
	flagConfig string
	flagStore  string
	flagQuiet  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "finsim",
	Short:        "Monthly personal-finance simulation",
	Long:         "Live a simulated financial life one month at a time and compare it with the guru's.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagStore != "" {
			cfg.Store.Driver = flagStore
		}
		if flagQuiet {
			cfg.Log.Level = "warn"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return setupLogging(cfg.Log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "finsim.yaml", "Config file (YAML); missing is fine")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Override store driver: memory, sqlite or postgres")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

func setupLogging(lc config.LogConfig) error {
	level, err := lc.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// openStore opens the configured store, wrapped with the Redis cache when
// one is configured.
func openStore(ctx context.Context, c *config.Config) (persistence.Store, error) {
	var st persistence.Store
	switch c.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store (runs will not persist)")
		st = persistence.NewMemoryStore()
	case config.DriverSQLite:
		if dir := filepath.Dir(c.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		db, err := persistence.OpenSQLite(c.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("database opened", "driver", "sqlite", "path", c.Store.SQLitePath)
		st = db
	case config.DriverPostgres:
		db, err := persistence.ConnectPostgres(ctx, c.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		slog.Info("database opened", "driver", "postgres")
		st = db
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, cache will fall through", "addr", c.Redis.Addr, "error", err)
		}
		st = persistence.NewCachedStore(st, rdb, c.Redis.TTL)
		slog.Info("redis cache enabled", "addr", c.Redis.Addr, "ttl", c.Redis.TTL)
	}
	return st, nil
}

// newService wires the engine and run service from configuration.
func newService(c *config.Config, st persistence.Store, opts ...runs.Option) (*runs.Service, error) {
	catalog, err := c.Catalog.Load()
	if err != nil {
		return nil, err
	}
	eng := engine.New(economy.NewGenerator(catalog), c.Guru)
	eng.Rules = c.Engine.Rules
	eng.Parallel = c.Engine.Parallel

	slog.Debug("engine ready", "templates", catalog.Len(), "parallel", eng.Parallel, "horizon", c.Engine.Horizon)
	opts = append([]runs.Option{runs.WithHorizon(c.Engine.Horizon)}, opts...)
	return runs.NewService(st, eng, c.Profiles, opts...), nil
}
