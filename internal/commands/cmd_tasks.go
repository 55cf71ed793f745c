package commands

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/tools"
	"github.com/colonyops/taskman/pkg/iojson"
)

// ErrToolFailed is returned by one-shot commands after a failed result has
// been printed.
var ErrToolFailed = errors.New("tool invocation failed")

// TasksCmd maps one-shot subcommands onto the task tools.
type TasksCmd struct {
	flags *Flags
	app   *app.App

	// flags
	jsonOutput bool
	priority   string
	status     string
}

// NewTasksCmd creates the task subcommands.
func NewTasksCmd(flags *Flags, a *app.App) *TasksCmd {
	return &TasksCmd{flags: flags, app: a}
}

// Register adds the task subcommands to the application.
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{Name: "json", Usage: "print the result payload as JSON", Destination: &cmd.jsonOutput}
	}
	priorityFlag := func(usage string) cli.Flag {
		return &cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: usage, Destination: &cmd.priority}
	}
	statusFlag := func(usage string) cli.Flag {
		return &cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: usage, Destination: &cmd.status}
	}

	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "add",
			Usage:     "Add a task",
			UsageText: `taskman add [--priority High|Medium|Low] <name>`,
			Flags:     []cli.Flag{jsonFlag(), priorityFlag("task priority (defaults to the configured default)")},
			Action:    cmd.add,
		},
		&cli.Command{
			Name:      "list",
			Aliases:   []string{"ls"},
			Usage:     "List tasks",
			UsageText: `taskman list [--status S] [--priority P]`,
			Flags:     []cli.Flag{jsonFlag(), statusFlag("only tasks with this status"), priorityFlag("only tasks with this priority")},
			Action:    cmd.list,
		},
		&cli.Command{
			Name:          "update",
			Usage:         "Change the status and/or priority of a task",
			UsageText:     `taskman update <id|name> [--status S] [--priority P]`,
			Flags:         []cli.Flag{jsonFlag(), statusFlag("new status"), priorityFlag("new priority")},
			Action:        cmd.update,
			ShellComplete: TaskCompleter(cmd.app, false),
		},
		&cli.Command{
			Name:          "complete",
			Aliases:       []string{"done"},
			Usage:         "Mark a task as Done",
			UsageText:     `taskman complete <id|name>`,
			Flags:         []cli.Flag{jsonFlag()},
			Action:        cmd.complete,
			ShellComplete: TaskCompleter(cmd.app, false),
		},
		&cli.Command{
			Name:      "status",
			Usage:     "Change the status of a task by numeric id",
			UsageText: `taskman status <id> <status>`,
			Flags:     []cli.Flag{jsonFlag()},
			Action:    cmd.changeStatus,
		},
		&cli.Command{
			Name:          "delete",
			Aliases:       []string{"rm"},
			Usage:         "Permanently delete a task",
			UsageText:     `taskman delete <id|name>`,
			Flags:         []cli.Flag{jsonFlag()},
			Action:        cmd.delete,
			ShellComplete: TaskCompleter(cmd.app, true),
		},
	)

	return app
}

func (cmd *TasksCmd) add(ctx context.Context, c *cli.Command) error {
	args := map[string]any{}
	if c.NArg() > 0 {
		args["name"] = strings.Join(c.Args().Slice(), " ")
	}
	setIf(args, "priority", cmd.priority)
	return cmd.invoke(ctx, c, tools.ToolAdd, args)
}

func (cmd *TasksCmd) list(ctx context.Context, c *cli.Command) error {
	args := map[string]any{}
	setIf(args, "status_filter", cmd.status)
	setIf(args, "priority_filter", cmd.priority)
	return cmd.invoke(ctx, c, tools.ToolList, args)
}

func (cmd *TasksCmd) update(ctx context.Context, c *cli.Command) error {
	args := identifierArgs(c)
	setIf(args, "status", cmd.status)
	setIf(args, "priority", cmd.priority)
	return cmd.invoke(ctx, c, tools.ToolUpdate, args)
}

func (cmd *TasksCmd) complete(ctx context.Context, c *cli.Command) error {
	return cmd.invoke(ctx, c, tools.ToolComplete, identifierArgs(c))
}

func (cmd *TasksCmd) changeStatus(ctx context.Context, c *cli.Command) error {
	args := map[string]any{}
	setIf(args, "task_id", c.Args().Get(0))
	setIf(args, "status", c.Args().Get(1))
	return cmd.invoke(ctx, c, tools.ToolChangeStatus, args)
}

func (cmd *TasksCmd) delete(ctx context.Context, c *cli.Command) error {
	return cmd.invoke(ctx, c, tools.ToolDelete, identifierArgs(c))
}

func (cmd *TasksCmd) invoke(ctx context.Context, c *cli.Command, name string, args map[string]any) error {
	res := cmd.app.Dispatcher.Invoke(ctx, name, args)
	return writeResult(c, cmd.flags, res, cmd.jsonOutput)
}

// writeResult prints res as JSON or through the presentation adapter and
// turns a failed result into an error for the exit status.
func writeResult(c *cli.Command, flags *Flags, res tools.Result, jsonOutput bool) error {
	w := c.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	if jsonOutput {
		errW := c.Root().ErrWriter
		if errW == nil {
			errW = os.Stderr
		}
		if err := iojson.WriteWith(w, errW, res); err != nil {
			return err
		}
	} else if err := newPrinter(flags, w).Result(res); err != nil {
		return err
	}

	switch {
	case res.OK:
		return nil
	case res.Error != nil && res.Error.Kind == tools.KindStorageIOError:
		return &StorageFailure{Detail: res.Error.Detail}
	default:
		return ErrToolFailed
	}
}

// identifierArgs joins the positional arguments into a task identifier so
// unquoted multi-word names work.
func identifierArgs(c *cli.Command) map[string]any {
	args := map[string]any{}
	if c.NArg() > 0 {
		args["task_identifier"] = strings.Join(c.Args().Slice(), " ")
	}
	return args
}

func setIf(args map[string]any, key, value string) {
	if value != "" {
		args[key] = value
	}
}
