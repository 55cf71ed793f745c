package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/pkg/iojson"
)

// CallCmd invokes any tool with a JSON argument bag.
type CallCmd struct {
	flags *Flags
	app   *app.App
	fr    *iojson.FileReader[map[string]any]

	jsonOutput bool
}

// NewCallCmd creates the call command.
func NewCallCmd(flags *Flags, a *app.App) *CallCmd {
	return &CallCmd{
		flags: flags,
		app:   a,
		fr:    &iojson.FileReader[map[string]any]{},
	}
}

// Register adds the call command to the application.
func (cmd *CallCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "call",
		Usage: "Invoke a tool with JSON arguments",
		UsageText: `taskman call <tool> [options]

Read from stdin:
  echo '{"name":"Write report","priority":"High"}' | taskman call add

Read from file:
  taskman call update -f args.json`,
		Description: `Invokes a tool by name with an argument object, exactly as an agent would.
Run 'taskman tools' to see each tool's input schema.`,
		Flags: []cli.Flag{
			cmd.fr.Flag(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result payload as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CallCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one tool name, got %d arguments", c.NArg())
	}

	if r := c.Root().Reader; r != nil && r != os.Stdin {
		cmd.fr.Stdin = r
	}
	args, err := cmd.fr.Read()
	if err != nil {
		if !cmd.jsonOutput {
			return fmt.Errorf("read arguments: %w", err)
		}
		errW := c.Root().ErrWriter
		if errW == nil {
			errW = os.Stderr
		}
		if werr := iojson.WriteError(errW, "cannot read tool arguments", map[string]any{"error": err.Error()}); werr != nil {
			return werr
		}
		return ErrToolFailed
	}

	res := cmd.app.Dispatcher.Invoke(ctx, c.Args().First(), args)
	return writeResult(c, cmd.flags, res, cmd.jsonOutput)
}
