package commands

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/core/config"
	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/store/csvfile"
)

func TestWatchChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flags, a := newTestApp(t, config.BackendCSV)

	// Create the file so both stores start from the same version.
	res := a.Dispatcher.Invoke(ctx, "add", map[string]any{"name": "seed"})
	require.True(t, res.OK)

	ct, ok := a.ChangeTracker()
	require.True(t, ok)

	notices, stop, err := watchChanges(ctx, ct, zerolog.Nop())
	require.NoError(t, err)
	defer stop()

	// Own writes stay quiet.
	res = a.Dispatcher.Invoke(ctx, "add", map[string]any{"name": "mine"})
	require.True(t, res.OK)

	select {
	case msg := <-notices:
		t.Fatalf("unexpected notice for own write: %s", msg)
	case <-time.After(300 * time.Millisecond):
	}

	other, err := csvfile.New(flags.Config.CSVPath())
	require.NoError(t, err)
	_, err = other.Insert(ctx, task.NewTask{Name: "theirs", Priority: task.PriorityLow})
	require.NoError(t, err)

	select {
	case msg := <-notices:
		assert.Contains(t, msg, "another session")
		assert.Contains(t, msg, "tasks.csv")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change notice")
	}
}
