package task

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an identifier matches no task.
	ErrNotFound = errors.New("task not found")
	// ErrNoFields is returned when an update supplies neither status nor priority.
	ErrNoFields = errors.New("at least one of status or priority is required")
	// ErrInvalidName is returned for empty task names.
	ErrInvalidName = errors.New("task name must not be empty")
	// ErrInvalidPriority is returned for values outside the priority set.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInvalidStatus is returned for values outside the status set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidIdentifier is returned when a numeric id is required but the token is not a number.
	ErrInvalidIdentifier = errors.New("task id must be numeric")
	// ErrAmbiguousIdentifier is returned when strict name matching finds more than one task.
	ErrAmbiguousIdentifier = errors.New("task name matches more than one task")
	// ErrInvalidTransition is returned when strict transitions reject a backward status move.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrConflict is returned when another writer changed the store between read and write.
	ErrConflict = errors.New("store was modified by another writer")
	// ErrStorage wraps faults from the underlying file or database.
	ErrStorage = errors.New("storage unavailable")
)

// Store is the durable table of task records. Implementations must make each
// mutation a single atomic durable write.
type Store interface {
	// List returns tasks matching the filter in ascending id order.
	// An empty result is a non-nil empty slice.
	List(ctx context.Context, filter ListFilter) ([]Task, error)

	// Get returns the task with the given id.
	// Returns ErrNotFound if the task does not exist.
	Get(ctx context.Context, id int64) (Task, error)

	// FindByName returns every task whose name equals name exactly, in
	// ascending id order.
	FindByName(ctx context.Context, name string) ([]Task, error)

	// Insert creates a task with status NotStarted and a newly assigned id
	// strictly greater than any id previously issued by the store.
	Insert(ctx context.Context, fields NewTask) (Task, error)

	// Update applies the patch and refreshes UpdatedAt.
	// Returns ErrNoFields for an empty patch and ErrNotFound for unknown ids.
	Update(ctx context.Context, id int64, patch Patch) (Task, error)

	// Delete permanently removes the task and returns it.
	// Returns ErrNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) (Task, error)

	// Close releases any resources held by the store.
	Close() error
}

// ChangeTracker is implemented by stores that can tell writes made through
// themselves apart from writes made by other sessions sharing the same files.
type ChangeTracker interface {
	// WatchPaths returns the files whose modification may signal a change.
	WatchPaths() []string

	// ExternalChange reports whether the store content differs from the last
	// version this store wrote or acknowledged, and acknowledges it.
	ExternalChange(ctx context.Context) (bool, error)
}
