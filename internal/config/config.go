// Package config loads finsim's configuration: a YAML file layered over
// built-in defaults, then FINSIM_* environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/guru"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FINSIM_"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Autopilot AutopilotConfig `yaml:"autopilot" envPrefix:"AUTOPILOT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Engine    EngineConfig    `yaml:"engine" envPrefix:"ENGINE_"`
	Catalog   CatalogConfig   `yaml:"catalog" envPrefix:"CATALOG_"`

	// Guru overrides the default policy field by field.
	Guru guru.Policy `yaml:"guru"`
	// Profiles adds to or replaces entries of the default difficulty table.
	Profiles agents.Profiles `yaml:"profiles"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	AdminKey     string        `yaml:"admin_key" env:"ADMIN_KEY"`
	RelayKey     string        `yaml:"relay_key" env:"RELAY_KEY"`
	CreateRate   int           `yaml:"create_rate" env:"CREATE_RATE"` // run creations per window per IP; 0 disables
	CreateWindow time.Duration `yaml:"create_window" env:"CREATE_WINDOW"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" env:"DRIVER"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

// RedisConfig enables the read-through cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

type AutopilotConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	Cron    string        `yaml:"cron" env:"CRON"` // six fields, seconds first
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // text or json
}

type EngineConfig struct {
	Parallel bool         `yaml:"parallel" env:"PARALLEL"`
	Horizon  int          `yaml:"horizon" env:"HORIZON"` // default run length in months; 0 is open-ended
	Rules    engine.Rules `yaml:"rules"`
}

type CatalogConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			CreateRate:   10,
			CreateWindow: time.Minute,
		},
		Store: StoreConfig{
			Driver:     DriverSQLite,
			SQLitePath: "data/finsim.db",
		},
		Redis: RedisConfig{TTL: 30 * time.Second},
		Autopilot: AutopilotConfig{
			Cron:    "0 0 * * * *",
			Timeout: time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{
			Parallel: true,
			Horizon:  120,
			Rules:    engine.DefaultRules(),
		},
		Guru:     guru.DefaultPolicy(),
		Profiles: agents.DefaultProfiles(),
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be memory, sqlite or postgres", c.Store.Driver))
	}

	if c.Server.CreateRate < 0 {
		errs = append(errs, errors.New("server.create_rate must not be negative"))
	}
	if c.Server.CreateRate > 0 && c.Server.CreateWindow <= 0 {
		errs = append(errs, errors.New("server.create_window must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		errs = append(errs, errors.New("redis.ttl must be positive"))
	}
	if c.Autopilot.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Autopilot.Cron); err != nil {
			errs = append(errs, fmt.Errorf("autopilot.cron: %w", err))
		}
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if c.Engine.Horizon < 0 {
		errs = append(errs, errors.New("engine.horizon must not be negative"))
	}
	if err := c.Engine.Rules.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Guru.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Profiles) == 0 {
		errs = append(errs, errors.New("profiles: at least one difficulty is required"))
	}
	for _, name := range c.Profiles.Names() {
		if err := c.Profiles[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profiles.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Load returns the offer catalog: the built-in one, or the YAML file at
// Path.
func (c CatalogConfig) Load() (*economy.Catalog, error) {
	if c.Path == "" {
		return economy.DefaultCatalog(), nil
	}
	return economy.LoadCatalog(c.Path)
}
