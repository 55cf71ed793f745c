package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskman/internal/app"
	"github.com/colonyops/taskman/internal/core/task"
)

// TaskCompleter returns a ShellCompleteFunc that suggests task names as
// positional completions. Done tasks are skipped unless includeDone is set.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func TaskCompleter(a *app.App, includeDone bool) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if a.Store == nil {
			return
		}
		tasks, err := a.Store.List(ctx, task.ListFilter{})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, t := range tasks {
			if t.Status == task.StatusDone && !includeDone {
				continue
			}
			_, _ = fmt.Fprintln(w, t.Name)
		}
	}
}
