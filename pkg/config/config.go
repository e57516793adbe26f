// Package config reads CLI defaults from ALMANAC_* environment variables.
// Command-line flags take precedence over anything loaded here.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

// Prefix is prepended to every variable name, e.g. ALMANAC_WORKERS.
const Prefix = "ALMANAC"

// Defaults mirrored by the struct tags below.
const (
	DefaultDatastore = "almanac.db"
	DefaultWorkers   = 4
	DefaultLogLevel  = "info"
	DefaultColor     = "auto"
)

// Env holds environment-based configuration.
type Env struct {
	// Datastore is the SQLite file runs are recorded in.
	// Env: ALMANAC_DATASTORE (default: almanac.db)
	Datastore string `envconfig:"DATASTORE" default:"almanac.db"`

	// Workers bounds parallel range resolution.
	// Env: ALMANAC_WORKERS (default: 4)
	Workers int `envconfig:"WORKERS" default:"4"`

	// LogLevel is debug, info, warn or error.
	// Env: ALMANAC_LOG_LEVEL (default: info)
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Color is auto, always or never.
	// Env: ALMANAC_COLOR (default: auto)
	Color string `envconfig:"COLOR" default:"auto"`
}

// Load reads the environment.
func Load() (Env, error) {
	var cfg Env
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Env{}, fmt.Errorf("loading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

// Validate rejects values the CLI cannot act on.
func (e Env) Validate() error {
	if e.Workers < 1 {
		return fmt.Errorf("%s_WORKERS must be positive, got %d", Prefix, e.Workers)
	}
	if _, err := e.Level(); err != nil {
		return err
	}
	switch e.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%s_COLOR must be auto, always or never, got %q", Prefix, e.Color)
	}
	return nil
}

// Level parses LogLevel.
func (e Env) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(e.LogLevel))); err != nil {
		return lvl, fmt.Errorf("%s_LOG_LEVEL: %w", Prefix, err)
	}
	return lvl, nil
}
