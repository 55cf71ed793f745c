package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/core/config"
	"github.com/colonyops/taskman/internal/present"
)

func runREPL(t *testing.T, backend config.Backend, input string) (string, error) {
	t.Helper()

	_, a := newTestApp(t, backend)

	var out bytes.Buffer
	repl := &REPL{
		Dispatcher: a.Dispatcher,
		Printer:    present.New(&out, present.Options{}),
		In:         strings.NewReader(input),
	}

	err := repl.Run(context.Background())
	return out.String(), err
}

func TestREPL_Session(t *testing.T) {
	for _, backend := range []config.Backend{config.BackendSQLite, config.BackendCSV} {
		t.Run(string(backend), func(t *testing.T) {
			input := strings.Join([]string{
				`add name="Write report" priority=High`,
				`add name="Review PR"`,
				``,
				`complete task_identifier=1`,
				`list status_filter=Done`,
				`delete task_identifier="Review PR"`,
				`QUIT`,
				`add name="never runs"`,
			}, "\n")

			out, err := runREPL(t, backend, input)
			require.NoError(t, err)

			assert.Contains(t, out, "Added task #1: Write report (priority High)")
			assert.Contains(t, out, "Added task #2: Review PR (priority Medium)")
			assert.Contains(t, out, "Completed task #1: Write report")
			assert.Contains(t, out, "Found 1 task (status: Done)")
			assert.Contains(t, out, "Deleted task #2: Review PR")
			assert.Contains(t, out, "Goodbye")
			assert.NotContains(t, out, "never runs")
		})
	}
}

func TestREPL_ExitTokens(t *testing.T) {
	for _, token := range []string{"quit", "Exit", "q", "Q"} {
		t.Run(token, func(t *testing.T) {
			out, err := runREPL(t, config.BackendCSV, token+"\nlist\n")
			require.NoError(t, err)
			assert.Contains(t, out, "Goodbye")
			assert.NotContains(t, out, "No tasks found")
		})
	}
}

func TestREPL_EndOfInput(t *testing.T) {
	out, err := runREPL(t, config.BackendCSV, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found")
}

func TestREPL_ErrorsDoNotStopTheLoop(t *testing.T) {
	input := strings.Join([]string{
		`add name="unterminated`,
		`frobnicate x=1`,
		`complete 3`,
		`update task_identifier=1`,
		`delete task_identifier=9`,
		`list`,
	}, "\n")

	out, err := runREPL(t, config.BackendCSV, input)
	require.NoError(t, err)

	assert.Contains(t, out, "❌ InvalidArgument: cannot parse")
	assert.Contains(t, out, "❌ UnknownTool")
	assert.Contains(t, out, "expected key=value")
	assert.Contains(t, out, "❌ InvalidArgument")
	assert.Contains(t, out, "❌ NotFound")
	assert.Contains(t, out, "No tasks found")
}

func TestREPL_HelpAndTools(t *testing.T) {
	out, err := runREPL(t, config.BackendCSV, "help\ntools\n")
	require.NoError(t, err)

	assert.Contains(t, out, "change_status")
	assert.Contains(t, out, "task_identifier")
	assert.Contains(t, out, "Mark a task as Done.")
}

func TestREPL_StopsOnStorageFailure(t *testing.T) {
	flags, a := newTestApp(t, config.BackendCSV)

	res := a.Dispatcher.Invoke(context.Background(), "add", map[string]any{"name": "seed"})
	require.True(t, res.OK)

	// Corrupt the file behind the store's back.
	require.NoError(t, os.WriteFile(flags.Config.CSVPath(), []byte("id,name\n1,x\n"), 0o644))

	var out bytes.Buffer
	repl := &REPL{
		Dispatcher: a.Dispatcher,
		Printer:    present.New(&out, present.Options{}),
		In:         strings.NewReader("list\nadd name=after\n"),
	}

	err := repl.Run(context.Background())

	var sf *StorageFailure
	require.True(t, errors.As(err, &sf), "got %v", err)
	assert.Contains(t, out.String(), "❌ StorageIOError")
	assert.NotContains(t, out.String(), "after")
}

func TestREPL_PrintsNotices(t *testing.T) {
	_, a := newTestApp(t, config.BackendCSV)

	notices := make(chan string, 1)
	notices <- "Tasks were changed by another session (tasks.csv)."
	close(notices)

	// Input stays open until the notice has been consumed.
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	var out bytes.Buffer
	repl := &REPL{
		Dispatcher: a.Dispatcher,
		Printer:    present.New(&out, present.Options{}),
		In:         pr,
		Notices:    notices,
	}

	done := make(chan error, 1)
	go func() { done <- repl.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return len(notices) == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, _ = pw.Write([]byte("quit\n"))
	require.NoError(t, <-done)

	assert.Contains(t, out.String(), "Tasks were changed by another session (tasks.csv).")
}
