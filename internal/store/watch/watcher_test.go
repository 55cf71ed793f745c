package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcher_Watch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.csv")

	fw, err := New(path)
	require.NoError(t, err)
	defer fw.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := fw.Watch(ctx)

	require.NoError(t, os.WriteFile(path, []byte("id,name\n"), 0o644))

	select {
	case event := <-events:
		assert.Equal(t, filepath.Base(path), filepath.Base(event.Path))
		assert.False(t, event.Timestamp.IsZero())
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestFileWatcher_SeesAtomicRename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.csv")

	fw, err := New(path)
	require.NoError(t, err)
	defer fw.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := fw.Watch(ctx)

	tmp := filepath.Join(dir, "tasks.csv.123.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-events:
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.csv")

	fw, err := New(path)
	require.NoError(t, err)
	defer fw.Close() //nolint:errcheck

	events := fw.Watch(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.csv.seq"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case event := <-events:
		t.Fatalf("unexpected event for %s", event.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFileWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")

	fw, err := New(path, path+"-wal")
	require.NoError(t, err)
	defer fw.Close() //nolint:errcheck

	events := fw.Watch(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(path+"-wal", []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	timeout := time.After(300 * time.Millisecond)
	count := 0
	for {
		select {
		case <-events:
			count++
		case <-timeout:
			assert.Equal(t, 1, count, "should receive exactly one debounced event")
			return
		}
	}
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	fw, err := New(filepath.Join(t.TempDir(), "tasks.csv"))
	require.NoError(t, err)
	defer fw.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	events := fw.Watch(ctx)
	cancel()

	time.Sleep(100 * time.Millisecond)
	_, ok := <-events
	assert.False(t, ok, "channel should be closed after context cancellation")
}

func TestFileWatcher_Close(t *testing.T) {
	t.Parallel()

	fw, err := New(filepath.Join(t.TempDir(), "tasks.csv"))
	require.NoError(t, err)

	events := fw.Watch(context.Background())
	require.NoError(t, fw.Close())

	_, ok := <-events
	assert.False(t, ok, "channel should be closed after watcher close")
}
