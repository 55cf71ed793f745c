package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the typed statements for the tasks table.
type Queries struct {
	db DBTX
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Task is a row of the tasks table.
type Task struct {
	ID        int64
	Name      string
	Priority  string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

const taskColumns = `id, name, priority, status, created_at, updated_at`

const createTask = `
INSERT INTO tasks (name, priority, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + taskColumns

// CreateTaskParams are the inputs to CreateTask.
type CreateTaskParams struct {
	Name      string
	Priority  string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

// CreateTask inserts a row and returns it with the assigned id.
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) (Task, error) {
	row := q.db.QueryRowContext(ctx, createTask,
		arg.Name,
		arg.Priority,
		arg.Status,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanTask(row)
}

const getTask = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

// GetTask returns the row with the given id or sql.ErrNoRows.
func (q *Queries) GetTask(ctx context.Context, id int64) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, getTask, id))
}

const listTasks = `SELECT ` + taskColumns + ` FROM tasks
WHERE (?1 = '' OR status = ?1)
  AND (?2 = '' OR priority = ?2)
ORDER BY id`

// ListTasksParams holds optional equality filters; empty strings match all.
type ListTasksParams struct {
	Status   string
	Priority string
}

// ListTasks returns rows matching the filters in ascending id order.
func (q *Queries) ListTasks(ctx context.Context, arg ListTasksParams) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasks, arg.Status, arg.Priority)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

const listTasksByName = `SELECT ` + taskColumns + ` FROM tasks WHERE name = ? ORDER BY id`

// ListTasksByName returns rows whose name matches exactly, in ascending id order.
func (q *Queries) ListTasksByName(ctx context.Context, name string) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasksByName, name)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

const updateTask = `
UPDATE tasks
SET status = COALESCE(?, status),
    priority = COALESCE(?, priority),
    updated_at = ?
WHERE id = ?
RETURNING ` + taskColumns

// UpdateTaskParams are the inputs to UpdateTask. Null fields keep their value.
type UpdateTaskParams struct {
	Status    sql.NullString
	Priority  sql.NullString
	UpdatedAt int64
	ID        int64
}

// UpdateTask patches a row in a single statement and returns the result.
// Returns sql.ErrNoRows when the id does not exist.
func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (Task, error) {
	row := q.db.QueryRowContext(ctx, updateTask,
		arg.Status,
		arg.Priority,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanTask(row)
}

const deleteTask = `DELETE FROM tasks WHERE id = ? RETURNING ` + taskColumns

// DeleteTask removes a row and returns it. Returns sql.ErrNoRows when absent.
func (q *Queries) DeleteTask(ctx context.Context, id int64) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, deleteTask, id))
}

const taskVersion = `
SELECT COUNT(*),
       COALESCE(MAX(updated_at), 0),
       COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'tasks'), 0)
FROM tasks`

// TaskVersion summarises the table so that any insert, update or delete
// changes at least one field.
type TaskVersion struct {
	Count     int64
	UpdatedAt int64
	Seq       int64
}

// GetTaskVersion returns the current TaskVersion.
func (q *Queries) GetTaskVersion(ctx context.Context) (TaskVersion, error) {
	var v TaskVersion
	err := q.db.QueryRowContext(ctx, taskVersion).Scan(&v.Count, &v.UpdatedAt, &v.Seq)
	return v, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Priority,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	defer func() { _ = rows.Close() }()

	items := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
