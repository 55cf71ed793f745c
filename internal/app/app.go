// Package app wires the configured store, the tools and the dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskman/internal/core/config"
	"github.com/colonyops/taskman/internal/core/logging"
	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/data/db"
	"github.com/colonyops/taskman/internal/data/stores"
	"github.com/colonyops/taskman/internal/store/csvfile"
	"github.com/colonyops/taskman/internal/tools"
)

// App is the central entry point for all taskman operations. Commands
// consume App instead of cherry-picking raw dependencies.
type App struct {
	Config     *config.Config
	Store      task.Store
	Dispatcher *tools.Dispatcher

	// DB is the SQLite database, nil for the CSV backend.
	DB *db.DB
}

// Options tune how the store is opened.
type Options struct {
	// RecoverCorrupt moves a corrupt SQLite database aside and starts a
	// fresh one instead of failing.
	RecoverCorrupt bool
}

// Open opens the configured backend and registers the task tools.
func Open(ctx context.Context, cfg *config.Config, opts Options, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Backend {
	case config.BackendCSV:
		store, err := csvfile.New(cfg.CSVPath())
		if err != nil {
			return nil, fmt.Errorf("open csv store: %w", err)
		}
		a.Store = store
	case config.BackendSQLite:
		database, err := openSQLite(cfg, opts, logger)
		if err != nil {
			return nil, err
		}
		a.DB = database
		a.Store = stores.NewTaskStore(database)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	a.Dispatcher = tools.NewDispatcher(logging.Sub(logger, "tools"))

	toolOpts := tools.Options{
		DefaultPriority:   cfg.DefaultPriority(),
		Resolver:          cfg.Resolver(),
		StrictTransitions: cfg.Tasks.StrictTransitions,
	}
	if err := tools.NewTaskTools(a.Store, toolOpts).Register(a.Dispatcher); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	logger.Debug().
		Str("backend", string(cfg.Backend)).
		Str("path", cfg.StorePath()).
		Msg("store opened")

	return a, nil
}

// ChangeTracker returns the store's change tracker, if it has one.
func (a *App) ChangeTracker() (task.ChangeTracker, bool) {
	ct, ok := a.Store.(task.ChangeTracker)
	return ct, ok
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func openSQLite(cfg *config.Config, opts Options, logger zerolog.Logger) (*db.DB, error) {
	path := cfg.SQLitePath()
	dbOpts := db.OpenOptions{
		MaxOpenConns: cfg.SQLite.MaxOpenConns,
		MaxIdleConns: cfg.SQLite.MaxIdleConns,
		BusyTimeout:  cfg.SQLite.BusyTimeout,
	}

	database, err := db.Open(path, dbOpts)
	if err == nil {
		return database, nil
	}

	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open database: %w: %w", task.ErrStorage, err)
	}
	if !opts.RecoverCorrupt {
		return nil, fmt.Errorf("open database: %w: %w (rerun with --recover to move it aside)", task.ErrStorage, err)
	}

	backup, recErr := stores.RecoverFromCorruption(path)
	if recErr != nil {
		return nil, fmt.Errorf("recover database: %w", errors.Join(err, recErr))
	}
	logger.Warn().Str("backup", backup).Msg("corrupt database moved aside")

	database, err = db.Open(path, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %w", task.ErrStorage, err)
	}
	return database, nil
}
