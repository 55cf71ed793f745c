package commands

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/core/logging"
	"github.com/colonyops/taskman/internal/present"
)

// RootCmd runs the interactive loop, or the scripted demo with --demo.
type RootCmd struct {
	flags *Flags
	app   *app.App

	demo    bool
	noWatch bool
}

// NewRootCmd creates the default command.
func NewRootCmd(flags *Flags, a *app.App) *RootCmd {
	return &RootCmd{flags: flags, app: a}
}

// Flags returns the flags for registration on the root command.
func (cmd *RootCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "demo",
			Usage:       "run the scripted demonstration instead of the interactive loop",
			Destination: &cmd.demo,
		},
		&cli.BoolFlag{
			Name:        "no-watch",
			Usage:       "do not report changes made by other sessions",
			Sources:     cli.EnvVars("TASKMAN_NO_WATCH"),
			Destination: &cmd.noWatch,
		},
	}
}

// Run executes the root action.
func (cmd *RootCmd) Run(ctx context.Context, c *cli.Command) error {
	p := newPrinter(cmd.flags, c.Root().Writer)

	if cmd.demo {
		return RunDemo(ctx, cmd.app.Dispatcher, p)
	}

	repl := &REPL{
		Dispatcher: cmd.app.Dispatcher,
		Printer:    p,
		In:         stdin(c),
	}

	if ct, ok := cmd.app.ChangeTracker(); ok && !cmd.noWatch {
		notices, stop, err := watchChanges(ctx, ct, logging.Component("watch"))
		if err != nil {
			log.Warn().Err(err).Msg("change notifications disabled")
		} else {
			defer stop()
			repl.Notices = notices
		}
	}

	p.Notice("taskman %s store at %s. Type 'help' for commands, 'quit' to exit.",
		cmd.flags.Config.Backend, cmd.flags.Config.StorePath())

	return repl.Run(ctx)
}

func newPrinter(flags *Flags, w io.Writer) *present.Printer {
	if w == nil {
		w = os.Stdout
	}
	opts := present.Options{}
	if flags.Config != nil {
		opts.Width = flags.Config.Display.Width
		opts.Icons = flags.Config.Display.ShowIcons()
	}
	return present.New(w, opts)
}

func stdin(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
