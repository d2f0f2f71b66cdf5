// Package config provides configuration loading and defaults for pctracker.
//
// Configuration is loaded from a TOML file in the user's data directory. It
// covers the recorder's tick cadence and inactivity threshold, the analyzer's
// rules file and cluster threshold, the event store location, and logging.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/pctracker/internal/atomicfile"
	"tools.zach/dev/pctracker/internal/migrate"
	"tools.zach/dev/pctracker/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Record holds recorder loop settings.
	Record RecordConfig `toml:"record"`
	// Analyze holds report settings.
	Analyze AnalyzeConfig `toml:"analyze"`
	// Store holds event store settings.
	Store StoreConfig `toml:"store"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// RecordConfig holds recorder loop settings.
type RecordConfig struct {
	// PollIntervalSeconds is the period between window snapshots.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// InactivitySeconds is how long without input before the user counts as away.
	InactivitySeconds int `toml:"inactivity_seconds"`
	// IdleProbe selects the input-idle detector: "auto", "xprintidle", "ioreg",
	// "win32" or "none".
	IdleProbe string `toml:"idle_probe"`
	// Source selects the window snapshot source: "auto", "x11" or "win32".
	Source string `toml:"source"`
}

// AnalyzeConfig holds report settings.
type AnalyzeConfig struct {
	// RulesFile is the classification rules file, relative to the data directory.
	RulesFile string `toml:"rules_file"`
	// Threshold is the minimum cluster size for unmatched-title examples.
	// Values in [0,1) are a fraction of the unmatched entries at that node.
	Threshold float64 `toml:"threshold"`
	// Examples is the maximum number of example clusters shown per node.
	Examples int `toml:"examples"`
	// OnlyActive restricts the report to intervals where the window was focused.
	OnlyActive bool `toml:"only_active"`
}

// StoreConfig holds event store settings.
type StoreConfig struct {
	// File is the SQLite database file, relative to the data directory.
	File string `toml:"file"`
	// BusyTimeoutMS is how long SQLite waits on a locked database.
	BusyTimeoutMS int `toml:"busy_timeout_ms"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Record: RecordConfig{
			PollIntervalSeconds: 5,
			InactivitySeconds:   30,
			IdleProbe:           "auto",
			Source:              "auto",
		},
		Analyze: AnalyzeConfig{
			RulesFile:  paths.RulesFile,
			Threshold:  0.2,
			Examples:   5,
			OnlyActive: true,
		},
		Store: StoreConfig{
			File:          paths.DatabaseFile,
			BusyTimeoutMS: 5000,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// PollInterval returns the recorder tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Record.PollIntervalSeconds) * time.Second
}

// InactivityThreshold returns how long without input counts as away.
func (c *Config) InactivityThreshold() time.Duration {
	return time.Duration(c.Record.InactivitySeconds) * time.Second
}

// BusyTimeout returns the SQLite busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	return LoadFile(filepath.Join(dataDir, paths.ConfigFile))
}

// LoadFile reads, migrates, and validates the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	return atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	})
}

// Encode returns the config as TOML bytes.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// CheckThreshold reports whether t is a usable cluster threshold: a fraction
// in [0, 1) or a whole count of at least 1.
func CheckThreshold(t float64) error {
	if t < 0 {
		return fmt.Errorf("threshold must be >= 0, got %g", t)
	}
	if t >= 1 && t != math.Trunc(t) {
		return fmt.Errorf("threshold %g: values >= 1 must be whole counts", t)
	}
	return nil
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Record.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0, got %d", c.Record.PollIntervalSeconds)
	}
	if c.Record.InactivitySeconds <= 0 {
		return fmt.Errorf("inactivity_seconds must be > 0, got %d", c.Record.InactivitySeconds)
	}

	switch c.Record.IdleProbe {
	case "auto", "xprintidle", "ioreg", "win32", "none":
	default:
		return fmt.Errorf("invalid record.idle_probe %q: must be auto, xprintidle, ioreg, win32, or none", c.Record.IdleProbe)
	}

	switch c.Record.Source {
	case "auto", "x11", "win32":
	default:
		return fmt.Errorf("invalid record.source %q: must be auto, x11, or win32", c.Record.Source)
	}

	if err := CheckThreshold(c.Analyze.Threshold); err != nil {
		return fmt.Errorf("analyze.%w", err)
	}
	if c.Analyze.Examples < 0 {
		return fmt.Errorf("analyze.examples must be >= 0, got %d", c.Analyze.Examples)
	}
	if strings.TrimSpace(c.Analyze.RulesFile) == "" {
		return fmt.Errorf("analyze.rules_file must not be empty")
	}

	if strings.TrimSpace(c.Store.File) == "" {
		return fmt.Errorf("store.file must not be empty")
	}
	if c.Store.BusyTimeoutMS < 0 {
		return fmt.Errorf("store.busy_timeout_ms must be >= 0, got %d", c.Store.BusyTimeoutMS)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}
