package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
)

// NewRoot builds the taskman command tree. Lifecycle hooks (config, logging,
// opening the store into a) are left to the caller.
func NewRoot(flags *Flags, a *app.App, version string) *cli.Command {
	root := &cli.Command{
		Name:      "taskman",
		Usage:     "Persistent task list for agents and humans",
		UsageText: "taskman [global options] [command [command options]]",
		Description: `taskman keeps a task list in a local SQLite database or CSV file and exposes
it as a small set of tools: add, list, update, complete, change_status and delete.

Run 'taskman' with no arguments for the interactive loop, 'taskman --demo' for a
scripted walkthrough, or 'taskman serve' to offer the tools to an agent over MCP.`,
		Flags:                 globalFlags(flags),
		EnableShellCompletion: true,
	}

	rootCmd := NewRootCmd(flags, a)

	root = NewTasksCmd(flags, a).Register(root)
	root = NewCallCmd(flags, a).Register(root)
	root = NewToolsCmd(flags, a).Register(root)
	root = NewServeCmd(flags, a, version).Register(root)
	root = NewMigrateCmd(flags, a).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)

	root.Flags = append(root.Flags, rootCmd.Flags()...)

	root.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'taskman --help' for usage", c.Args().First())
		}
		return rootCmd.Run(ctx, c)
	}

	return root
}

func globalFlags(flags *Flags) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error, fatal, panic)",
			Sources:     cli.EnvVars("TASKMAN_LOG_LEVEL"),
			Value:       "info",
			Destination: &flags.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "path to log file (defaults to <data-dir>/taskman.log)",
			Sources:     cli.EnvVars("TASKMAN_LOG_FILE"),
			Destination: &flags.LogFile,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to config file",
			Sources:     cli.EnvVars("TASKMAN_CONFIG"),
			Value:       DefaultConfigPath(),
			Destination: &flags.ConfigPath,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "path to data directory",
			Sources:     cli.EnvVars("TASKMAN_DATA_DIR"),
			Value:       DefaultDataDir(),
			Destination: &flags.DataDir,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "record store backend (sqlite, csv); overrides the config file",
			Sources:     cli.EnvVars("TASKMAN_BACKEND"),
			Destination: &flags.Backend,
		},
		&cli.BoolFlag{
			Name:        "recover",
			Usage:       "move a corrupt sqlite database aside and start a fresh one",
			Destination: &flags.Recover,
		},
	}
}
