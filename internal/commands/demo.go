package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskman/internal/present"
	"github.com/colonyops/taskman/internal/tools"
)

type demoStep struct {
	title string
	tool  string
	args  func() map[string]any
}

// RunDemo plays the scripted walkthrough: add two tasks, complete the first,
// list completed tasks, delete the second and list what remains. Ids come
// from the store so the demo also works on a non-empty store.
func RunDemo(ctx context.Context, d *tools.Dispatcher, p *present.Printer) error {
	var reportID, reviewID int64

	steps := []demoStep{
		{
			title: "Add a high priority task",
			tool:  tools.ToolAdd,
			args:  func() map[string]any { return map[string]any{"name": "Write report", "priority": "High"} },
		},
		{
			title: "Add a medium priority task",
			tool:  tools.ToolAdd,
			args:  func() map[string]any { return map[string]any{"name": "Review PR", "priority": "Medium"} },
		},
		{
			title: "Complete the report",
			tool:  tools.ToolComplete,
			args:  func() map[string]any { return map[string]any{"task_identifier": reportID} },
		},
		{
			title: "List completed tasks",
			tool:  tools.ToolList,
			args:  func() map[string]any { return map[string]any{"status_filter": "Done"} },
		},
		{
			title: "Delete the review",
			tool:  tools.ToolDelete,
			args:  func() map[string]any { return map[string]any{"task_identifier": reviewID} },
		},
		{
			title: "List all tasks",
			tool:  tools.ToolList,
			args:  func() map[string]any { return map[string]any{} },
		},
	}

	for i, step := range steps {
		p.Notice("── Step %d/%d: %s (%s)", i+1, len(steps), step.title, step.tool)

		res := d.Invoke(ctx, step.tool, step.args())
		if err := p.Result(res); err != nil {
			return err
		}
		if !res.OK {
			return fmt.Errorf("demo step %d (%s) failed: %s", i+1, step.tool, res.Message)
		}

		switch i {
		case 0:
			reportID = res.Tasks[0].ID
		case 1:
			reviewID = res.Tasks[0].ID
		}
	}

	return nil
}
