// Package watch reports modifications of store files made by any process.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const (
	debounceDelay   = 50 * time.Millisecond
	eventBufferSize = 16
)

// Event is emitted once per burst of writes to the watched files.
type Event struct {
	Path      string
	Timestamp time.Time
}

// FileWatcher watches a fixed set of files using fsnotify. Parent directories
// are watched rather than the files so atomic renames are seen.
type FileWatcher struct {
	files   map[string]struct{}
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	subscribers []chan Event
	timer       *time.Timer
	lastPath    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts watching paths. Parent directories are created if missing.
func New(paths ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return nil, err
		}
		files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = watcher.Close()
			return nil, err
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	fw := &FileWatcher{
		files:   files,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}

	fw.wg.Add(1)
	go fw.run()

	return fw, nil
}

// Watch returns a channel that receives an event after each debounced burst
// of changes. The channel is closed when ctx ends or the watcher closes.
func (fw *FileWatcher) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, eventBufferSize)

	fw.mu.Lock()
	fw.subscribers = append(fw.subscribers, ch)
	fw.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			fw.unsubscribe(ch)
		case <-fw.ctx.Done():
		}
	}()

	return ch
}

// Close stops watching and closes all subscriber channels.
func (fw *FileWatcher) Close() error {
	fw.cancel()

	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	for _, ch := range fw.subscribers {
		close(ch)
	}
	fw.subscribers = nil
	fw.mu.Unlock()

	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) unsubscribe(ch chan Event) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for i, sub := range fw.subscribers {
		if sub == ch {
			fw.subscribers = append(fw.subscribers[:i], fw.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (fw *FileWatcher) run() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("store watcher error")
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := fw.files[name]; !ok {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.ctx.Err() != nil {
		return
	}

	fw.lastPath = name
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(debounceDelay, fw.notify)
}

func (fw *FileWatcher) notify() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.ctx.Err() != nil {
		return
	}

	event := Event{Path: fw.lastPath, Timestamp: time.Now()}
	for _, ch := range fw.subscribers {
		select {
		case ch <- event:
		default:
			// subscriber is behind; it will see the next burst
		}
	}
	fw.timer = nil
}
