package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/commands"
	"github.com/colonyops/taskman/internal/core/config"
	"github.com/colonyops/taskman/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	// A .env in the working directory may set TASKMAN_* variables.
	_ = godotenv.Load()

	var (
		logCloser func()
		taskApp   = &app.App{}
	)

	flags := &commands.Flags{}

	root := commands.NewRoot(flags, taskApp, version)
	root.Version = build()
	root.Before = func(ctx context.Context, c *cli.Command) (context.Context, error) {
		cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
		if err != nil {
			return ctx, fmt.Errorf("load config: %w", err)
		}
		if flags.Backend != "" {
			cfg.Backend = config.Backend(strings.ToLower(flags.Backend))
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid --backend: %w", err)
			}
		}
		flags.Config = cfg

		// Always log to a file; use explicit path or default to <datadir>/taskman.log
		logFile := flags.LogFile
		if logFile == "" {
			logFile = cfg.LogFile()
		}

		logger, closer, err := logutils.New(flags.LogLevel, logFile)
		if err != nil {
			return ctx, fmt.Errorf("setup logger: %w", err)
		}
		log.Logger = logger
		logCloser = closer

		opened, err := app.Open(ctx, cfg, app.Options{RecoverCorrupt: flags.Recover}, logger)
		if err != nil {
			return ctx, err
		}

		// Populate the pre-allocated App struct (commands already hold a pointer to it)
		*taskApp = *opened

		return ctx, nil
	}
	root.After = func(ctx context.Context, c *cli.Command) error {
		if err := taskApp.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
			return err
		}

		// Close log file
		if logCloser != nil {
			logCloser()
		}
		return nil
	}

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		if !errors.Is(err, commands.ErrToolFailed) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		exitCode = 1
	}

	os.Exit(exitCode)
}
