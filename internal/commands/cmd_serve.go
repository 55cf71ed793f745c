package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/core/logging"
	"github.com/colonyops/taskman/internal/mcpserver"
)

// ServeCmd exposes the tools over MCP stdio.
type ServeCmd struct {
	flags   *Flags
	app     *app.App
	version string
}

// NewServeCmd creates the serve command.
func NewServeCmd(flags *Flags, a *app.App, version string) *ServeCmd {
	return &ServeCmd{flags: flags, app: a, version: version}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the task tools over MCP stdio",
		UsageText: "taskman serve",
		Description: `Speaks the Model Context Protocol on stdin/stdout so an agent can call the
task tools directly. Logs go to the log file, never to stdout.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(cmd.app.Dispatcher, cmd.version, logging.Component("mcp"))
	return srv.Serve(ctx, stdin(c), c.Root().Writer)
}
