// Package tasktest provides a behavioural test suite shared by every
// task.Store backend.
package tasktest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/core/task"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) task.Store

func ptr[T any](v T) *T { return &v }

// Run exercises the task.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) task.Store {
		t.Helper()
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("insert assigns increasing ids", func(t *testing.T) {
		s := open(t)

		var last int64
		for _, name := range []string{"a", "b", "c"} {
			got, err := s.Insert(ctx, task.NewTask{Name: name, Priority: task.PriorityLow})
			require.NoError(t, err)
			assert.Greater(t, got.ID, last)
			assert.Equal(t, task.StatusNotStarted, got.Status)
			assert.Equal(t, task.PriorityLow, got.Priority)
			assert.False(t, got.CreatedAt.IsZero())
			last = got.ID
		}
	})

	t.Run("ids are not reused after delete", func(t *testing.T) {
		s := open(t)

		first, err := s.Insert(ctx, task.NewTask{Name: "one", Priority: task.PriorityMedium})
		require.NoError(t, err)
		second, err := s.Insert(ctx, task.NewTask{Name: "two", Priority: task.PriorityMedium})
		require.NoError(t, err)

		_, err = s.Delete(ctx, second.ID)
		require.NoError(t, err)

		third, err := s.Insert(ctx, task.NewTask{Name: "three", Priority: task.PriorityMedium})
		require.NoError(t, err)
		assert.Greater(t, third.ID, second.ID)
		assert.Greater(t, third.ID, first.ID)
	})

	t.Run("get and not found", func(t *testing.T) {
		s := open(t)

		created, err := s.Insert(ctx, task.NewTask{Name: "Write report", Priority: task.PriorityHigh})
		require.NoError(t, err)

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Write report", got.Name)
		assert.Equal(t, task.PriorityHigh, got.Priority)

		_, err = s.Get(ctx, created.ID+100)
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("list is ordered and filtered", func(t *testing.T) {
		s := open(t)

		empty, err := s.List(ctx, task.ListFilter{})
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		for _, p := range []task.Priority{task.PriorityHigh, task.PriorityLow, task.PriorityHigh} {
			_, err := s.Insert(ctx, task.NewTask{Name: "t-" + string(p), Priority: p})
			require.NoError(t, err)
		}

		all, err := s.List(ctx, task.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}

		_, err = s.Update(ctx, all[2].ID, task.Patch{Status: ptr(task.StatusDone)})
		require.NoError(t, err)

		high, err := s.List(ctx, task.ListFilter{Priority: task.PriorityHigh})
		require.NoError(t, err)
		require.Len(t, high, 2)
		assert.Equal(t, all[0].ID, high[0].ID)
		assert.Equal(t, all[2].ID, high[1].ID)

		done, err := s.List(ctx, task.ListFilter{Status: task.StatusDone})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, all[2].ID, done[0].ID)

		both, err := s.List(ctx, task.ListFilter{Status: task.StatusDone, Priority: task.PriorityLow})
		require.NoError(t, err)
		assert.Empty(t, both)

		for _, st := range task.Statuses {
			got, err := s.List(ctx, task.ListFilter{Status: st})
			require.NoError(t, err)
			for _, tk := range got {
				assert.Equal(t, st, tk.Status)
			}
		}
	})

	t.Run("update applies patch and refreshes updated_at", func(t *testing.T) {
		s := open(t)

		created, err := s.Insert(ctx, task.NewTask{Name: "patch me", Priority: task.PriorityLow})
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		updated, err := s.Update(ctx, created.ID, task.Patch{
			Status:   ptr(task.StatusInReview),
			Priority: ptr(task.PriorityHigh),
		})
		require.NoError(t, err)
		assert.Equal(t, task.StatusInReview, updated.Status)
		assert.Equal(t, task.PriorityHigh, updated.Priority)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updated_at should advance")

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusInReview, got.Status)
		assert.Equal(t, task.PriorityHigh, got.Priority)
	})

	t.Run("update without fields or target fails without mutation", func(t *testing.T) {
		s := open(t)

		created, err := s.Insert(ctx, task.NewTask{Name: "stable", Priority: task.PriorityMedium})
		require.NoError(t, err)

		_, err = s.Update(ctx, created.ID, task.Patch{})
		assert.ErrorIs(t, err, task.ErrNoFields)

		_, err = s.Update(ctx, created.ID+50, task.Patch{Status: ptr(task.StatusDone)})
		assert.ErrorIs(t, err, task.ErrNotFound)

		all, err := s.List(ctx, task.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, task.StatusNotStarted, all[0].Status)
	})

	t.Run("delete removes permanently", func(t *testing.T) {
		s := open(t)

		created, err := s.Insert(ctx, task.NewTask{Name: "gone", Priority: task.PriorityMedium})
		require.NoError(t, err)

		removed, err := s.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		assert.Equal(t, "gone", removed.Name)

		_, err = s.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)

		all, err := s.List(ctx, task.ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("find by name keeps store order", func(t *testing.T) {
		s := open(t)

		for _, name := range []string{"dup", "other", "dup"} {
			_, err := s.Insert(ctx, task.NewTask{Name: name, Priority: task.PriorityMedium})
			require.NoError(t, err)
		}

		got, err := s.FindByName(ctx, "dup")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Less(t, got[0].ID, got[1].ID)

		none, err := s.FindByName(ctx, "absent")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("unicode names round trip", func(t *testing.T) {
		s := open(t)

		names := []string{
			"企画書作成",
			"naïve, \"quoted\" name",
			"line\nbreak",
			"🚀 launch",
			"crlf\r\nname",
			"cr\ronly",
			"trailing cr\r",
			"x\xff\r\ny",
		}
		for _, name := range names {
			_, err := s.Insert(ctx, task.NewTask{Name: name, Priority: task.PriorityMedium})
			require.NoError(t, err)
		}

		all, err := s.List(ctx, task.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, len(names))
		for i, name := range names {
			assert.Equal(t, name, all[i].Name)
		}
	})
}
