// Package stores implements task.Store on top of the SQLite database.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/data/db"
)

// TaskStore implements task.Store using SQLite. Every mutation is a single
// statement inside a transaction, so no reader can observe a partial write.
type TaskStore struct {
	db  *db.DB
	now func() time.Time

	// beforeCommit runs inside the write transaction, after the statement.
	beforeCommit func()

	mu    sync.Mutex
	known db.TaskVersion
}

var (
	_ task.Store         = (*TaskStore)(nil)
	_ task.ChangeTracker = (*TaskStore)(nil)
)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(database *db.DB) *TaskStore {
	s := &TaskStore{db: database, now: time.Now}
	s.remember(context.Background())
	return s
}

// Path returns the database file backing the store.
func (s *TaskStore) Path() string {
	return s.db.Path()
}

// List returns tasks matching the filter in ascending id order.
func (s *TaskStore) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	rows, err := s.db.Queries().ListTasks(ctx, db.ListTasksParams{
		Status:   string(filter.Status),
		Priority: string(filter.Priority),
	})
	if err != nil {
		return nil, storageError("list tasks", err)
	}

	return rowsToTasks(rows)
}

// Get returns a single task by id.
func (s *TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	row, err := s.db.Queries().GetTask(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return task.Task{}, fmt.Errorf("%w: id=%d", task.ErrNotFound, id)
		}
		return task.Task{}, storageError("get task", err)
	}

	return rowToTask(row)
}

// FindByName returns tasks whose name matches exactly, in ascending id order.
func (s *TaskStore) FindByName(ctx context.Context, name string) ([]task.Task, error) {
	rows, err := s.db.Queries().ListTasksByName(ctx, name)
	if err != nil {
		return nil, storageError("find tasks by name", err)
	}

	return rowsToTasks(rows)
}

// Insert creates a task. Ids come from AUTOINCREMENT and are never reused.
func (s *TaskStore) Insert(ctx context.Context, fields task.NewTask) (task.Task, error) {
	now := s.now().UnixNano()

	return s.write(ctx, "insert task", 0, func(q *db.Queries) (db.Task, error) {
		return q.CreateTask(ctx, db.CreateTaskParams{
			Name:      fields.Name,
			Priority:  string(fields.Priority),
			Status:    string(task.StatusNotStarted),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
}

// Update applies the patch in one statement and refreshes updated_at.
func (s *TaskStore) Update(ctx context.Context, id int64, patch task.Patch) (task.Task, error) {
	if patch.IsEmpty() {
		return task.Task{}, task.ErrNoFields
	}

	params := db.UpdateTaskParams{
		UpdatedAt: s.now().UnixNano(),
		ID:        id,
	}
	if patch.Status != nil {
		params.Status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	if patch.Priority != nil {
		params.Priority = sql.NullString{String: string(*patch.Priority), Valid: true}
	}

	return s.write(ctx, "update task", id, func(q *db.Queries) (db.Task, error) {
		return q.UpdateTask(ctx, params)
	})
}

// Delete removes a task permanently and returns the removed record.
func (s *TaskStore) Delete(ctx context.Context, id int64) (task.Task, error) {
	return s.write(ctx, "delete task", id, func(q *db.Queries) (db.Task, error) {
		return q.DeleteTask(ctx, id)
	})
}

// write runs one mutating statement and reads the table version in the same
// transaction. The statement takes the write lock, so no other session can
// commit between the two and the version recorded as seen is exactly the one
// this write produced.
func (s *TaskStore) write(ctx context.Context, op string, id int64, stmt func(*db.Queries) (db.Task, error)) (task.Task, error) {
	var (
		row     db.Task
		version db.TaskVersion
	)

	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		var err error
		if row, err = stmt(q); err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit()
		}
		version, err = q.GetTaskVersion(ctx)
		return err
	})
	if err != nil {
		if IsNotFoundError(err) {
			return task.Task{}, fmt.Errorf("%w: id=%d", task.ErrNotFound, id)
		}
		return task.Task{}, storageError(op, err)
	}

	s.mu.Lock()
	s.known = version
	s.mu.Unlock()

	return rowToTask(row)
}

// Close closes the underlying database.
func (s *TaskStore) Close() error {
	return s.db.Close()
}

// WatchPaths returns the database file and its write-ahead log.
func (s *TaskStore) WatchPaths() []string {
	return []string{s.db.Path(), s.db.Path() + "-wal"}
}

// ExternalChange reports whether the table differs from the last version this
// store wrote or acknowledged.
func (s *TaskStore) ExternalChange(ctx context.Context) (bool, error) {
	current, err := s.db.Queries().GetTaskVersion(ctx)
	if err != nil {
		return false, storageError("read task version", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current == s.known {
		return false, nil
	}
	s.known = current
	return true, nil
}

// remember records the version at open as seen. Failures only cost a
// spurious change notice, so they are ignored.
func (s *TaskStore) remember(ctx context.Context) {
	current, err := s.db.Queries().GetTaskVersion(ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.known = current
	s.mu.Unlock()
}

func rowsToTasks(rows []db.Task) ([]task.Task, error) {
	items := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTask(row)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

// rowToTask canonicalises priority and status. Tables bootstrapped from older
// databases may hold spellings outside the enum; those rows are a storage
// fault rather than values to pass along.
func rowToTask(row db.Task) (task.Task, error) {
	priority, err := task.ValidatePriority(row.Priority)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %d: %w", task.ErrStorage, row.ID, err)
	}
	status, err := task.ValidateStatus(row.Status)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %d: %w", task.ErrStorage, row.ID, err)
	}

	return task.Task{
		ID:        row.ID,
		Name:      row.Name,
		Priority:  priority,
		Status:    status,
		CreatedAt: fromUnixNano(row.CreatedAt),
		UpdatedAt: fromUnixNano(row.UpdatedAt),
	}, nil
}

// fromUnixNano maps the zero default of rows written before timestamps
// existed to the zero time.
func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
