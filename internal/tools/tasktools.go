package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/taskman/internal/core/task"
)

// Tool names.
const (
	ToolAdd          = "add"
	ToolList         = "list"
	ToolUpdate       = "update"
	ToolComplete     = "complete"
	ToolChangeStatus = "change_status"
	ToolDelete       = "delete"
)

// Options tune the task tools.
type Options struct {
	DefaultPriority   task.Priority
	Resolver          task.Resolver
	StrictTransitions bool
}

// DefaultOptions returns Medium default priority, id-or-name resolution and
// unrestricted transitions.
func DefaultOptions() Options {
	return Options{
		DefaultPriority: task.DefaultPriority,
		Resolver:        task.Resolver{Policy: task.PolicyIDOrName},
	}
}

// TaskTools implements the task tools over a store.
type TaskTools struct {
	store task.Store
	opts  Options
}

// NewTaskTools creates the task tool set.
func NewTaskTools(store task.Store, opts Options) *TaskTools {
	if !opts.DefaultPriority.IsValid() {
		opts.DefaultPriority = task.DefaultPriority
	}
	if !opts.Resolver.Policy.IsValid() {
		opts.Resolver.Policy = task.PolicyIDOrName
	}
	return &TaskTools{store: store, opts: opts}
}

// Register adds every task tool to d.
func (tt *TaskTools) Register(d *Dispatcher) error {
	for _, tool := range tt.Tools() {
		if err := d.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

var (
	priorityValues = []string{"High", "Medium", "Low"}
	statusValues   = []string{"NotStarted", "InProgress", "InReview", "Done"}
)

// Tools returns the tool definitions.
func (tt *TaskTools) Tools() []Tool {
	identifier := Field{
		Name:        "task_identifier",
		Type:        FieldIdentifier,
		Required:    true,
		Description: "Task id or exact task name",
	}

	return []Tool{
		{
			Name:        ToolAdd,
			Description: "Add a new task. New tasks start as NotStarted.",
			Fields: []Field{
				{Name: "name", Type: FieldString, Required: true, Description: "Task name"},
				{Name: "priority", Type: FieldString, Description: fmt.Sprintf("Task priority (default %s)", tt.opts.DefaultPriority), Enum: priorityValues},
			},
			Handler: tt.add,
		},
		{
			Name:        ToolList,
			Description: "List tasks in id order, optionally filtered by status and priority.",
			Fields: []Field{
				{Name: "status_filter", Type: FieldString, Description: "Only tasks with this status", Enum: statusValues},
				{Name: "priority_filter", Type: FieldString, Description: "Only tasks with this priority", Enum: priorityValues},
			},
			Handler: tt.list,
		},
		{
			Name:        ToolUpdate,
			Description: "Change the status and/or priority of a task.",
			Fields: []Field{
				identifier,
				{Name: "status", Type: FieldString, Description: "New status", Enum: statusValues},
				{Name: "priority", Type: FieldString, Description: "New priority", Enum: priorityValues},
			},
			Handler: tt.update,
		},
		{
			Name:        ToolComplete,
			Description: "Mark a task as Done.",
			Fields:      []Field{identifier},
			Handler:     tt.complete,
		},
		{
			Name:        ToolChangeStatus,
			Description: "Change the status of a task by numeric id.",
			Fields: []Field{
				{Name: "task_id", Type: FieldIdentifier, Required: true, Description: "Numeric task id"},
				{Name: "status", Type: FieldString, Required: true, Description: "New status", Enum: statusValues},
			},
			Handler: tt.changeStatus,
		},
		{
			Name:        ToolDelete,
			Description: "Permanently delete a task.",
			Fields:      []Field{identifier},
			Handler:     tt.delete,
		},
	}
}

func (tt *TaskTools) add(ctx context.Context, args Args) (Result, error) {
	raw, _ := args.String("name")
	name, err := task.ValidateName(raw)
	if err != nil {
		return Result{}, err
	}

	priority := tt.opts.DefaultPriority
	if v, ok := args.String("priority"); ok {
		priority, err = task.ValidatePriority(v)
		if err != nil {
			return Result{}, err
		}
	}

	created, err := tt.store.Insert(ctx, task.NewTask{Name: name, Priority: priority})
	if err != nil {
		return Result{}, err
	}

	return Success(fmt.Sprintf("Added task #%d: %s (priority %s)", created.ID, created.Name, created.Priority), created), nil
}

func (tt *TaskTools) list(ctx context.Context, args Args) (Result, error) {
	var (
		filter  task.ListFilter
		ignored []string
	)

	if v, ok := args.String("status_filter"); ok && strings.TrimSpace(v) != "" {
		if st, err := task.ValidateStatus(v); err == nil {
			filter.Status = st
		} else {
			ignored = append(ignored, fmt.Sprintf("status %q", v))
		}
	}
	if v, ok := args.String("priority_filter"); ok && strings.TrimSpace(v) != "" {
		if p, err := task.ValidatePriority(v); err == nil {
			filter.Priority = p
		} else {
			ignored = append(ignored, fmt.Sprintf("priority %q", v))
		}
	}

	items, err := tt.store.List(ctx, filter)
	if err != nil {
		return Result{}, err
	}

	var msg string
	switch len(items) {
	case 0:
		msg = "No tasks found" + describeFilter(filter)
	case 1:
		msg = "Found 1 task" + describeFilter(filter)
	default:
		msg = fmt.Sprintf("Found %d tasks%s", len(items), describeFilter(filter))
	}
	if len(ignored) > 0 {
		msg += fmt.Sprintf(" (ignored unknown filter %s)", strings.Join(ignored, ", "))
	}

	res := Success(msg, items...)
	res.Listing = true
	res.Filter = filter
	return res, nil
}

func (tt *TaskTools) update(ctx context.Context, args Args) (Result, error) {
	var patch task.Patch

	if v, ok := args.String("status"); ok {
		st, err := task.ValidateStatus(v)
		if err != nil {
			return Result{}, err
		}
		patch.Status = &st
	}
	if v, ok := args.String("priority"); ok {
		p, err := task.ValidatePriority(v)
		if err != nil {
			return Result{}, err
		}
		patch.Priority = &p
	}
	if patch.IsEmpty() {
		return Result{}, task.ErrNoFields
	}

	target, err := tt.opts.Resolver.Resolve(ctx, tt.store, args.Token("task_identifier"))
	if err != nil {
		return Result{}, err
	}

	updated, err := tt.apply(ctx, target, patch)
	if err != nil {
		return Result{}, err
	}

	var changes []string
	if patch.Status != nil {
		changes = append(changes, "status "+string(updated.Status))
	}
	if patch.Priority != nil {
		changes = append(changes, "priority "+string(updated.Priority))
	}

	return Success(fmt.Sprintf("Updated task #%d: %s (%s)", updated.ID, updated.Name, strings.Join(changes, ", ")), updated), nil
}

func (tt *TaskTools) complete(ctx context.Context, args Args) (Result, error) {
	target, err := tt.opts.Resolver.Resolve(ctx, tt.store, args.Token("task_identifier"))
	if err != nil {
		return Result{}, err
	}

	done := task.StatusDone
	updated, err := tt.apply(ctx, target, task.Patch{Status: &done})
	if err != nil {
		return Result{}, err
	}

	return Success(fmt.Sprintf("Completed task #%d: %s", updated.ID, updated.Name), updated), nil
}

func (tt *TaskTools) changeStatus(ctx context.Context, args Args) (Result, error) {
	id, err := task.ParseID(args.Token("task_id"))
	if err != nil {
		return Result{}, err
	}

	raw, _ := args.String("status")
	st, err := task.ValidateStatus(raw)
	if err != nil {
		return Result{}, err
	}

	target, err := tt.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	updated, err := tt.apply(ctx, target, task.Patch{Status: &st})
	if err != nil {
		return Result{}, err
	}

	return Success(fmt.Sprintf("Task #%d status changed to %s", updated.ID, updated.Status), updated), nil
}

func (tt *TaskTools) delete(ctx context.Context, args Args) (Result, error) {
	target, err := tt.opts.Resolver.Resolve(ctx, tt.store, args.Token("task_identifier"))
	if err != nil {
		return Result{}, err
	}

	removed, err := tt.store.Delete(ctx, target.ID)
	if err != nil {
		return Result{}, err
	}

	res := Success(fmt.Sprintf("Deleted task #%d: %s", removed.ID, removed.Name), removed)
	res.Deleted = true
	return res, nil
}

// apply checks the status transition and writes the patch.
func (tt *TaskTools) apply(ctx context.Context, target task.Task, patch task.Patch) (task.Task, error) {
	if patch.Status != nil {
		if err := task.CanTransition(target.Status, *patch.Status, tt.opts.StrictTransitions); err != nil {
			return task.Task{}, err
		}
	}
	return tt.store.Update(ctx, target.ID, patch)
}

func describeFilter(f task.ListFilter) string {
	if f.IsZero() {
		return ""
	}
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status: "+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority: "+string(f.Priority))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
