// Package config handles configuration loading and validation for taskman.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/taskman/internal/core/task"
)

// Backend selects the record store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendCSV    Backend = "csv"
)

// IsValid reports whether b is a known backend.
func (b Backend) IsValid() bool {
	return b == BackendSQLite || b == BackendCSV
}

// Config holds the application configuration.
type Config struct {
	Backend Backend       `yaml:"backend"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	CSV     CSVConfig     `yaml:"csv"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Display DisplayConfig `yaml:"display"`
	DataDir string        `yaml:"-"` // set by caller, not from config file
}

// SQLiteConfig holds settings for the SQLite backend.
type SQLiteConfig struct {
	Path         string `yaml:"path"`           // defaults to <data_dir>/tasks.db
	BusyTimeout  int    `yaml:"busy_timeout"`   // milliseconds
	MaxOpenConns int    `yaml:"max_open_conns"` // connection pool size
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CSVConfig holds settings for the CSV backend.
type CSVConfig struct {
	Path string `yaml:"path"` // defaults to <data_dir>/tasks.csv
}

// TasksConfig holds task rule settings.
type TasksConfig struct {
	DefaultPriority   string `yaml:"default_priority"`
	IdentifierPolicy  string `yaml:"identifier_policy"`  // id-or-name | id-only
	StrictNames       bool   `yaml:"strict_names"`       // duplicate name matches are ambiguous
	StrictTransitions bool   `yaml:"strict_transitions"` // forbid backward status moves
}

// DisplayConfig holds rendering settings.
type DisplayConfig struct {
	Width int   `yaml:"width"`
	Icons *bool `yaml:"icons"`
}

// ShowIcons reports whether status and priority icons are rendered.
func (d DisplayConfig) ShowIcons() bool {
	return d.Icons == nil || *d.Icons
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		SQLite: SQLiteConfig{
			BusyTimeout:  5000,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Tasks: TasksConfig{
			DefaultPriority:  string(task.DefaultPriority),
			IdentifierPolicy: string(task.PolicyIDOrName),
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.SQLite.BusyTimeout == 0 {
		c.SQLite.BusyTimeout = defaults.SQLite.BusyTimeout
	}
	if c.SQLite.MaxOpenConns == 0 {
		c.SQLite.MaxOpenConns = defaults.SQLite.MaxOpenConns
	}
	if c.SQLite.MaxIdleConns == 0 {
		c.SQLite.MaxIdleConns = defaults.SQLite.MaxIdleConns
	}
	if c.Tasks.DefaultPriority == "" {
		c.Tasks.DefaultPriority = defaults.Tasks.DefaultPriority
	}
	if c.Tasks.IdentifierPolicy == "" {
		c.Tasks.IdentifierPolicy = defaults.Tasks.IdentifierPolicy
	}
}

// SQLitePath returns the database file path.
func (c *Config) SQLitePath() string {
	if c.SQLite.Path != "" {
		return expandHome(c.SQLite.Path)
	}
	return filepath.Join(c.DataDir, "tasks.db")
}

// CSVPath returns the CSV task file path.
func (c *Config) CSVPath() string {
	if c.CSV.Path != "" {
		return expandHome(c.CSV.Path)
	}
	return filepath.Join(c.DataDir, "tasks.csv")
}

// StorePath returns the file backing the selected backend.
func (c *Config) StorePath() string {
	if c.Backend == BackendCSV {
		return c.CSVPath()
	}
	return c.SQLitePath()
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "taskman.log")
}

// DefaultPriority returns the parsed default priority. Validate guarantees
// the configured value parses.
func (c *Config) DefaultPriority() task.Priority {
	p, err := task.ValidatePriority(c.Tasks.DefaultPriority)
	if err != nil {
		return task.DefaultPriority
	}
	return p
}

// Resolver returns the identifier resolver described by the task settings.
func (c *Config) Resolver() task.Resolver {
	return task.Resolver{
		Policy:      task.IdentifierPolicy(c.Tasks.IdentifierPolicy),
		StrictNames: c.Tasks.StrictNames,
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
