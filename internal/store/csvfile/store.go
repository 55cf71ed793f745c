// Package csvfile implements task.Store on a single CSV file.
//
// Every mutation rewrites the whole file through a temp file and rename. A
// SHA-256 stamp of the bytes read is compared against the file on disk right
// before the rename; a mismatch means another session wrote in between and the
// read-modify-write is retried. The stamp check and the rename are not atomic
// with respect to each other, so two writers racing inside that window can
// still lose an update.
package csvfile

import (
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/taskman/internal/core/task"
)

// maxAttempts bounds the read-modify-write retries on version conflicts.
const maxAttempts = 3

// Header is the column layout of the task file.
var Header = []string{"id", "name", "priority", "status", "created_at", "updated_at"}

// Store implements task.Store using a CSV file for persistence.
type Store struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time

	// known is the stamp of the last version written or acknowledged by
	// this store.
	known string

	// beforeCommit runs between encoding and the stamp check. Tests use it
	// to simulate a concurrent writer.
	beforeCommit func()
}

var (
	_ task.Store         = (*Store)(nil)
	_ task.ChangeTracker = (*Store)(nil)
)

// New creates a store backed by the CSV file at path. The file and its parent
// directory are created on first write.
func New(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.known = snap.stamp

	return s, nil
}

// Path returns the CSV file backing the store.
func (s *Store) Path() string { return s.path }

// SeqPath returns the sidecar file holding the id high-water mark.
func (s *Store) SeqPath() string { return s.path + ".seq" }

// snapshot is one consistent read of the task file and its sidecar.
type snapshot struct {
	tasks []task.Task
	stamp string
	seq   int64
}

// nextID returns the id for a new task. Without a sidecar seq is zero and the
// result degrades to max(id)+1.
func (snap *snapshot) nextID() int64 {
	next := snap.seq
	for _, t := range snap.tasks {
		if t.ID > next {
			next = t.ID
		}
	}
	return next + 1
}

func (snap *snapshot) index(id int64) int {
	for i, t := range snap.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// List returns tasks matching the filter in ascending id order.
func (s *Store) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	items := make([]task.Task, 0, len(snap.tasks))
	for _, t := range snap.tasks {
		if filter.Matches(t) {
			items = append(items, t)
		}
	}

	return items, nil
}

// Get returns a task by id. Returns task.ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id int64) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load()
	if err != nil {
		return task.Task{}, err
	}

	if i := snap.index(id); i >= 0 {
		return snap.tasks[i], nil
	}

	return task.Task{}, fmt.Errorf("%w: id=%d", task.ErrNotFound, id)
}

// FindByName returns tasks whose name matches exactly, in ascending id order.
func (s *Store) FindByName(ctx context.Context, name string) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	items := []task.Task{}
	for _, t := range snap.tasks {
		if t.Name == name {
			items = append(items, t)
		}
	}

	return items, nil
}

// Insert appends a task with the next id from the high-water mark.
func (s *Store) Insert(ctx context.Context, fields task.NewTask) (task.Task, error) {
	return s.mutate(ctx, func(snap *snapshot) (task.Task, error) {
		now := s.now()
		created := task.Task{
			ID:        snap.nextID(),
			Name:      fields.Name,
			Priority:  fields.Priority,
			Status:    task.StatusNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		}

		snap.tasks = append(snap.tasks, created)
		snap.seq = created.ID

		return created, nil
	})
}

// Update applies the patch and refreshes updated_at.
func (s *Store) Update(ctx context.Context, id int64, patch task.Patch) (task.Task, error) {
	if patch.IsEmpty() {
		return task.Task{}, task.ErrNoFields
	}

	return s.mutate(ctx, func(snap *snapshot) (task.Task, error) {
		i := snap.index(id)
		if i < 0 {
			return task.Task{}, fmt.Errorf("%w: id=%d", task.ErrNotFound, id)
		}

		snap.tasks[i] = patch.Apply(snap.tasks[i], s.now())
		return snap.tasks[i], nil
	})
}

// Delete removes a task permanently and returns it.
func (s *Store) Delete(ctx context.Context, id int64) (task.Task, error) {
	return s.mutate(ctx, func(snap *snapshot) (task.Task, error) {
		i := snap.index(id)
		if i < 0 {
			return task.Task{}, fmt.Errorf("%w: id=%d", task.ErrNotFound, id)
		}

		removed := snap.tasks[i]
		// The high-water mark must cover the removed id even if it was the
		// largest one and no sidecar existed yet.
		if removed.ID > snap.seq {
			snap.seq = removed.ID
		}
		snap.tasks = append(snap.tasks[:i], snap.tasks[i+1:]...)

		return removed, nil
	})
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }

// WatchPaths returns the task file.
func (s *Store) WatchPaths() []string { return []string{s.path} }

// ExternalChange reports whether the file differs from the last version this
// store wrote or acknowledged.
func (s *Store) ExternalChange(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFile()
	if err != nil {
		return false, err
	}

	current := stamp(data)
	if current == s.known {
		return false, nil
	}

	s.known = current
	return true, nil
}

// mutate runs a read-modify-write cycle, retrying on version conflicts. fn
// returning an error aborts without writing.
func (s *Store) mutate(ctx context.Context, fn func(*snapshot) (task.Task, error)) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return task.Task{}, err
		}

		snap, err := s.load()
		if err != nil {
			return task.Task{}, err
		}

		result, err := fn(&snap)
		if err != nil {
			return task.Task{}, err
		}

		err = s.commit(snap)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, task.ErrConflict) {
			return task.Task{}, err
		}
		lastErr = err
	}

	return task.Task{}, lastErr
}

// load reads the task file and the sequence sidecar. A missing file is an
// empty store.
func (s *Store) load() (snapshot, error) {
	data, err := s.readFile()
	if err != nil {
		return snapshot{}, err
	}

	tasks, err := decode(data)
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w: %w", s.path, task.ErrStorage, err)
	}

	seq, err := s.readSeq()
	if err != nil {
		return snapshot{}, err
	}

	return snapshot{tasks: tasks, stamp: stamp(data), seq: seq}, nil
}

func (s *Store) readFile() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w: %w", s.path, task.ErrStorage, err)
	}
	return data, nil
}

func (s *Store) readSeq() (int64, error) {
	data, err := os.ReadFile(s.SeqPath())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w: %w", s.SeqPath(), task.ErrStorage, err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return 0, nil
	}

	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w: %w", s.SeqPath(), task.ErrStorage, err)
	}
	return seq, nil
}

// commit writes snap if the file on disk still carries the stamp snap was
// read with. The sidecar is written before the task file so a crash between
// the two can only leave the high-water mark ahead, never behind.
func (s *Store) commit(snap snapshot) error {
	data, err := encode(snap.tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w: %w", task.ErrStorage, err)
	}

	if s.beforeCommit != nil {
		s.beforeCommit()
	}

	current, err := s.readFile()
	if err != nil {
		return err
	}
	if stamp(current) != snap.stamp {
		return task.ErrConflict
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w: %w", task.ErrStorage, err)
	}

	if snap.seq > 0 {
		if err := writeAtomic(s.SeqPath(), []byte(strconv.FormatInt(snap.seq, 10)+"\n")); err != nil {
			return err
		}
	}

	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	s.known = stamp(data)
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w: %w", task.ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w: %w", tmpName, task.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w: %w", tmpName, task.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w: %w", tmpName, task.ErrStorage, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w: %w", path, task.ErrStorage, err)
	}
	return nil
}

// stamp returns the version stamp of the file content. An absent file has the
// empty stamp.
func stamp(data []byte) string {
	if data == nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encode(tasks []task.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			encodeName(t.Name),
			string(t.Priority),
			string(t.Status),
			formatTime(t.CreatedAt),
			formatTime(t.UpdatedAt),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses the task file. Columns are located by header name so files
// without timestamp columns still load.
func decode(data []byte) ([]task.Task, error) {
	tasks := []task.Task{}
	if len(bytes.TrimSpace(data)) == 0 {
		return tasks, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range Header[:4] {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}

		id, err := strconv.ParseInt(strings.TrimSpace(field(record, "id")), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id: %w", line, err)
		}
		priority, err := task.ValidatePriority(field(record, "priority"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		status, err := task.ValidateStatus(field(record, "status"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		name, err := decodeName(field(record, "name"))
		if err != nil {
			return nil, fmt.Errorf("row %d: name: %w", line, err)
		}
		createdAt, err := parseTime(field(record, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("row %d: created_at: %w", line, err)
		}
		updatedAt, err := parseTime(field(record, "updated_at"))
		if err != nil {
			return nil, fmt.Errorf("row %d: updated_at: %w", line, err)
		}

		tasks = append(tasks, task.Task{
			ID:        id,
			Name:      name,
			Priority:  priority,
			Status:    status,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		})
	}

	slices.SortStableFunc(tasks, func(a, b task.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return tasks, nil
}

// quotedPrefix marks a name stored in Go-quoted form. encoding/csv reads
// "\r\n" inside a quoted field back as "\n", so names holding a carriage
// return are written quoted. Names that already start with the marker are
// quoted as well to keep decoding unambiguous.
const quotedPrefix = "\x00"

func encodeName(name string) string {
	if !strings.ContainsRune(name, '\r') && !strings.HasPrefix(name, quotedPrefix) {
		return name
	}
	return quotedPrefix + strconv.Quote(name)
}

func decodeName(field string) (string, error) {
	rest, ok := strings.CutPrefix(field, quotedPrefix)
	if !ok {
		return field, nil
	}
	return strconv.Unquote(rest)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
