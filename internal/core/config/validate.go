package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/taskman/internal/core/task"
)

// Validate checks that the configuration is structurally valid. All field
// problems are reported together as criterio.FieldErrors.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, notEmpty),
		criterio.Run("backend", string(c.Backend), validBackend),
		c.validateSQLite(),
		criterio.Run("tasks.default_priority", c.Tasks.DefaultPriority, validPriority),
		criterio.Run("tasks.identifier_policy", c.Tasks.IdentifierPolicy, validPolicy),
		c.validateDisplay(),
	)
}

// ValidateDeep performs Validate plus file accessibility checks. The
// configPath argument specifies the config file location to validate (empty
// string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("sqlite.path", c.SQLitePath(), isFileOrNotExist),
		criterio.Run("csv.path", c.CSVPath(), isFileOrNotExist),
	)
}

func (c *Config) validateSQLite() error {
	var errs criterio.FieldErrorsBuilder

	if c.SQLite.BusyTimeout < 1 {
		errs = errs.Append("sqlite.busy_timeout", fmt.Errorf("must be at least 1"))
	}
	if c.SQLite.MaxOpenConns < 1 {
		errs = errs.Append("sqlite.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	switch {
	case c.SQLite.MaxIdleConns < 1:
		errs = errs.Append("sqlite.max_idle_conns", fmt.Errorf("must be at least 1"))
	case c.SQLite.MaxIdleConns > c.SQLite.MaxOpenConns:
		errs = errs.Append("sqlite.max_idle_conns", fmt.Errorf("must not exceed max_open_conns (%d)", c.SQLite.MaxOpenConns))
	}

	return errs.ToError()
}

func (c *Config) validateDisplay() error {
	if c.Display.Width < 0 {
		return criterio.NewFieldErrors("display.width", fmt.Errorf("must not be negative"))
	}
	return nil
}

func notEmpty(v string) error {
	if v == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validBackend(v string) error {
	if b := Backend(v); !b.IsValid() {
		return fmt.Errorf("unknown backend %q: must be %s or %s", b, BackendSQLite, BackendCSV)
	}
	return nil
}

func validPriority(v string) error {
	_, err := task.ValidatePriority(v)
	return err
}

func validPolicy(v string) error {
	if !task.IdentifierPolicy(v).IsValid() {
		return fmt.Errorf("unknown policy %q: must be %s or %s", v, task.PolicyIDOrName, task.PolicyIDOnly)
	}
	return nil
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// isFileOrNotExist validates that a store path is a regular file or can be
// created: it doesn't exist and its parent is not a file.
func isFileOrNotExist(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, not a file", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access: %w", err)
	}
	return isDirectoryOrNotExist(filepath.Dir(path))
}
