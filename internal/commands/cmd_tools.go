package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/present"
	"github.com/colonyops/taskman/pkg/iojson"
)

// ToolsCmd prints the tool catalog.
type ToolsCmd struct {
	flags *Flags
	app   *app.App

	format string
}

// NewToolsCmd creates the tools command.
func NewToolsCmd(flags *Flags, a *app.App) *ToolsCmd {
	return &ToolsCmd{flags: flags, app: a}
}

// Register adds the tools command to the application.
func (cmd *ToolsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "tools",
		Usage:       "Describe the available tools",
		UsageText:   "taskman tools [--format text|json]",
		Description: "Prints every tool with its description and input schema. JSON output is the catalog an agent receives.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ToolsCmd) run(_ context.Context, c *cli.Command) error {
	infos := cmd.app.Dispatcher.Tools()

	if cmd.format == "json" {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, infos)
	}

	return newPrinter(cmd.flags, c.Root().Writer).Help(present.HelpMarkdown(infos))
}
