// Package config loads runtime settings from SYNCSIM_* environment
// variables. Command-line flags override them in the cli package.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
)

// Config holds the settings shared by every command.
type Config struct {
	// Engine
	TraceLevel     string `env:"SYNCSIM_TRACE_LEVEL"     envDefault:"summary"`
	MaxDepth       int    `env:"SYNCSIM_MAX_DEPTH"       envDefault:"256"`
	History        int    `env:"SYNCSIM_HISTORY"         envDefault:"256"`
	CycleDetection bool   `env:"SYNCSIM_CYCLE_DETECTION" envDefault:"false"`

	// Specs is a directory of CUE rule specs. Empty uses the built-in rule
	// sets.
	Specs string `env:"SYNCSIM_SPECS"`

	// DB is the SQLite trace log path. Empty disables the log.
	DB string `env:"SYNCSIM_DB"`

	// Server
	Addr         string        `env:"SYNCSIM_ADDR"          envDefault:":8080"`
	Tick         time.Duration `env:"SYNCSIM_TICK"          envDefault:"1s"`
	PasswordCost int           `env:"SYNCSIM_PASSWORD_COST" envDefault:"10"`
	OTelEndpoint string        `env:"SYNCSIM_OTEL_ENDPOINT"`

	// Logging
	LogFormat string `env:"SYNCSIM_LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"SYNCSIM_LOG_LEVEL"  envDefault:"info"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom parses settings from an explicit variable map instead of the
// process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env cannot check by type alone.
func (c Config) Validate() error {
	if _, err := engine.ParseTraceLevel(c.TraceLevel); err != nil {
		return fmt.Errorf("SYNCSIM_TRACE_LEVEL: %w", err)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("SYNCSIM_MAX_DEPTH must be positive, got %d", c.MaxDepth)
	}
	if c.History < 0 {
		return fmt.Errorf("SYNCSIM_HISTORY must not be negative, got %d", c.History)
	}
	if c.Tick < 0 {
		return fmt.Errorf("SYNCSIM_TICK must not be negative, got %s", c.Tick)
	}
	if c.PasswordCost < 4 || c.PasswordCost > 31 {
		return fmt.Errorf("SYNCSIM_PASSWORD_COST must be between 4 and 31, got %d", c.PasswordCost)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("SYNCSIM_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// EngineOptions translates the engine settings.
func (c Config) EngineOptions() []engine.EngineOption {
	level, _ := engine.ParseTraceLevel(c.TraceLevel)
	opts := []engine.EngineOption{
		engine.WithTraceLevel(level),
		engine.WithMaxDepth(c.MaxDepth),
		engine.WithHistory(c.History),
	}
	if c.CycleDetection {
		opts = append(opts, engine.WithCycleDetection())
	}
	return opts
}

// Logger builds the slog logger described by LogFormat and LogLevel.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("SYNCSIM_LOG_LEVEL: %w", err)
	}
	return level, nil
}
