package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/data/db"
	"github.com/colonyops/taskman/internal/data/stores"
	"github.com/colonyops/taskman/internal/store/csvfile"
)

type backend struct {
	name string
	open func(t *testing.T) task.Store
}

var backends = []backend{
	{
		name: "sqlite",
		open: func(t *testing.T) task.Store {
			database, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"), db.DefaultOpenOptions())
			require.NoError(t, err)
			return stores.NewTaskStore(database)
		},
	},
	{
		name: "csv",
		open: func(t *testing.T) task.Store {
			s, err := csvfile.New(filepath.Join(t.TempDir(), "tasks.csv"))
			require.NoError(t, err)
			return s
		},
	},
}

func newTestDispatcher(t *testing.T, b backend, opts Options) (*Dispatcher, task.Store) {
	t.Helper()
	store := b.open(t)
	t.Cleanup(func() { _ = store.Close() })

	d := NewDispatcher(zerolog.Nop())
	require.NoError(t, NewTaskTools(store, opts).Register(d))
	return d, store
}

func requireOK(t *testing.T, res Result) {
	t.Helper()
	require.True(t, res.OK, "unexpected failure: %s", res.Message)
}

func requireKind(t *testing.T, res Result, kind Kind) {
	t.Helper()
	require.False(t, res.OK, "expected failure, got: %s", res.Message)
	require.NotNil(t, res.Error)
	assert.Equal(t, kind, res.Error.Kind, res.Message)
}

func ids(tasks []task.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestTaskTools_Scenario(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, DefaultOptions())

			res := d.Invoke(ctx, ToolAdd, map[string]any{"name": "Write report", "priority": "High"})
			requireOK(t, res)
			require.Len(t, res.Tasks, 1)
			assert.Equal(t, int64(1), res.Tasks[0].ID)
			assert.Equal(t, task.PriorityHigh, res.Tasks[0].Priority)
			assert.Equal(t, task.StatusNotStarted, res.Tasks[0].Status)

			res = d.Invoke(ctx, ToolAdd, map[string]any{"name": "Review PR", "priority": "Medium"})
			requireOK(t, res)
			assert.Equal(t, int64(2), res.Tasks[0].ID)

			res = d.Invoke(ctx, ToolComplete, map[string]any{"task_identifier": 1})
			requireOK(t, res)
			assert.Equal(t, task.StatusDone, res.Tasks[0].Status)

			res = d.Invoke(ctx, ToolList, map[string]any{"status_filter": "Done"})
			requireOK(t, res)
			assert.Equal(t, []int64{1}, ids(res.Tasks))

			res = d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": 2})
			requireOK(t, res)
			assert.True(t, res.Deleted)

			res = d.Invoke(ctx, ToolList, nil)
			requireOK(t, res)
			assert.Equal(t, []int64{1}, ids(res.Tasks))
		})
	}
}

func TestTaskTools_Add(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, store := newTestDispatcher(t, b, Options{DefaultPriority: task.PriorityLow})

			res := d.Invoke(ctx, ToolAdd, map[string]any{"name": "  trimmed  "})
			requireOK(t, res)
			assert.Equal(t, "trimmed", res.Tasks[0].Name)
			assert.Equal(t, task.PriorityLow, res.Tasks[0].Priority, "configured default priority")

			res = d.Invoke(ctx, ToolAdd, map[string]any{"name": "case", "priority": "high"})
			requireOK(t, res)
			assert.Equal(t, task.PriorityHigh, res.Tasks[0].Priority)

			requireKind(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "x", "priority": "Urgent"}), KindInvalidArgument)
			requireKind(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "   "}), KindInvalidArgument)
			requireKind(t, d.Invoke(ctx, ToolAdd, map[string]any{}), KindInvalidArgument)

			all, err := store.List(ctx, task.ListFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2, "failed adds must not write")
		})
	}
}

func TestTaskTools_List(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, DefaultOptions())

			res := d.Invoke(ctx, ToolList, nil)
			requireOK(t, res)
			assert.Empty(t, res.Tasks)
			assert.Equal(t, "No tasks found", res.Message)

			for _, p := range []string{"High", "Low", "High"} {
				requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "t", "priority": p}))
			}
			requireOK(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": 3, "status": "in progress"}))

			res = d.Invoke(ctx, ToolList, map[string]any{"priority_filter": "high"})
			requireOK(t, res)
			assert.Equal(t, []int64{1, 3}, ids(res.Tasks))
			assert.Equal(t, task.PriorityHigh, res.Filter.Priority)

			res = d.Invoke(ctx, ToolList, map[string]any{"priority_filter": "High", "status_filter": "InProgress"})
			requireOK(t, res)
			assert.Equal(t, []int64{3}, ids(res.Tasks))

			res = d.Invoke(ctx, ToolList, map[string]any{"status_filter": "Blocked"})
			requireOK(t, res)
			assert.Equal(t, []int64{1, 2, 3}, ids(res.Tasks), "unknown filter values are ignored")
			assert.Contains(t, res.Message, `ignored unknown filter status "Blocked"`)

			res = d.Invoke(ctx, ToolList, map[string]any{"status_filter": "Done"})
			requireOK(t, res)
			assert.Empty(t, res.Tasks)
			assert.Equal(t, "No tasks found (status: Done)", res.Message)
		})
	}
}

func TestTaskTools_Update(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, store := newTestDispatcher(t, b, DefaultOptions())

			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "Write report", "priority": "Low"}))

			res := d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": "Write report", "status": "InReview", "priority": "High"})
			requireOK(t, res)
			assert.Equal(t, task.StatusInReview, res.Tasks[0].Status)
			assert.Equal(t, task.PriorityHigh, res.Tasks[0].Priority)

			// backward moves are allowed unless transitions are strict
			res = d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": "1", "status": "NotStarted"})
			requireOK(t, res)

			requireKind(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": 1}), KindInvalidArgument)
			requireKind(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": 1, "status": "Later"}), KindInvalidArgument)
			requireKind(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": 1, "priority": "Urgent"}), KindInvalidArgument)
			requireKind(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": 99, "status": "Done"}), KindNotFound)
			requireKind(t, d.Invoke(ctx, ToolUpdate, map[string]any{"task_identifier": "missing", "status": "Done"}), KindNotFound)

			got, err := store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, task.StatusNotStarted, got.Status)
			assert.Equal(t, task.PriorityHigh, got.Priority)
		})
	}
}

func TestTaskTools_StrictOptions(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, Options{
				Resolver:          task.Resolver{Policy: task.PolicyIDOrName, StrictNames: true},
				StrictTransitions: true,
			})

			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "dup"}))
			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "dup"}))

			requireKind(t, d.Invoke(ctx, ToolComplete, map[string]any{"task_identifier": "dup"}), KindAmbiguousIdentifier)
			requireKind(t, d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": "dup"}), KindAmbiguousIdentifier)

			requireOK(t, d.Invoke(ctx, ToolComplete, map[string]any{"task_identifier": 1}))
			requireKind(t, d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": 1, "status": "InProgress"}), KindInvalidArgument)
		})
	}
}

func TestTaskTools_IDOnlyPolicy(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, backends[0], Options{Resolver: task.Resolver{Policy: task.PolicyIDOnly}})

	requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "named"}))

	requireKind(t, d.Invoke(ctx, ToolComplete, map[string]any{"task_identifier": "named"}), KindInvalidIdentifier)
	requireOK(t, d.Invoke(ctx, ToolComplete, map[string]any{"task_identifier": 1}))
}

func TestTaskTools_DuplicateNamesResolveToFirst(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, DefaultOptions())

			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "dup"}))
			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "dup"}))

			res := d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": "dup"})
			requireOK(t, res)
			assert.Equal(t, int64(1), res.Tasks[0].ID)

			res = d.Invoke(ctx, ToolList, nil)
			requireOK(t, res)
			assert.Equal(t, []int64{2}, ids(res.Tasks))
		})
	}
}

func TestTaskTools_ChangeStatus(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, DefaultOptions())

			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "Write report"}))

			res := d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": "1", "status": "in_progress"})
			requireOK(t, res)
			assert.Equal(t, task.StatusInProgress, res.Tasks[0].Status)

			requireKind(t, d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": "Write report", "status": "Done"}), KindInvalidIdentifier)
			requireKind(t, d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": 1, "status": "Paused"}), KindInvalidArgument)
			for _, missing := range []any{42, 0, -3, "0", "-3", 1e20, "100000000000000000000"} {
				res := d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": missing, "status": "Done"})
				requireKind(t, res, KindNotFound)
				assert.NotContains(t, res.Message, "must be numeric")
			}
			requireKind(t, d.Invoke(ctx, ToolChangeStatus, map[string]any{"task_id": 1}), KindInvalidArgument)
		})
	}
}

func TestTaskTools_Delete(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			d, _ := newTestDispatcher(t, b, DefaultOptions())

			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "a"}))
			requireOK(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "b"}))

			requireOK(t, d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": "b"}))
			requireKind(t, d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": "b"}), KindNotFound)
			requireKind(t, d.Invoke(ctx, ToolDelete, map[string]any{"task_identifier": 2}), KindNotFound)

			res := d.Invoke(ctx, ToolAdd, map[string]any{"name": "c"})
			requireOK(t, res)
			assert.Equal(t, int64(3), res.Tasks[0].ID, "ids are not reused")
		})
	}
}

func TestTaskTools_StorageFailure(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t, backends[0], DefaultOptions())
	require.NoError(t, store.Close())

	requireKind(t, d.Invoke(ctx, ToolAdd, map[string]any{"name": "x"}), KindStorageIOError)
	requireKind(t, d.Invoke(ctx, ToolList, nil), KindStorageIOError)
}
