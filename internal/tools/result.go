package tools

import (
	"errors"

	"github.com/colonyops/taskman/internal/core/task"
)

// Kind names the category of a failed invocation.
type Kind string

const (
	KindInvalidArgument     Kind = "InvalidArgument"
	KindInvalidIdentifier   Kind = "InvalidIdentifier"
	KindNotFound            Kind = "NotFound"
	KindAmbiguousIdentifier Kind = "AmbiguousIdentifier"
	KindConflict            Kind = "Conflict"
	KindStorageIOError      Kind = "StorageIOError"
	KindUnknownTool         Kind = "UnknownTool"
	KindInternal            Kind = "Internal"
)

// ErrorInfo describes why an invocation failed.
type ErrorInfo struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

// Result is the uniform outcome of a tool invocation. Exactly one of the
// success or failure shapes is populated: OK with Tasks, or !OK with Error.
type Result struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Tasks   []task.Task `json:"tasks,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`

	// Listing marks results of read-only list invocations; Filter is the
	// filter they applied.
	Listing bool            `json:"-"`
	Filter  task.ListFilter `json:"-"`
	// Deleted marks results of removals.
	Deleted bool `json:"-"`
}

// Success builds a successful result.
func Success(message string, tasks ...task.Task) Result {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return Result{OK: true, Message: message, Tasks: tasks}
}

// Failure builds a failed result of the given kind.
func Failure(kind Kind, detail string) Result {
	return Result{
		OK:      false,
		Message: detail,
		Error:   &ErrorInfo{Kind: kind, Detail: detail},
	}
}

// FromError converts an error returned by a handler into a failed result.
func FromError(err error) Result {
	return Failure(Classify(err), err.Error())
}

// Classify maps domain and storage errors onto result kinds. Storage faults
// win over anything else in the chain, since a corrupt row can also wrap a
// validation error.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, task.ErrStorage):
		return KindStorageIOError
	case errors.Is(err, task.ErrConflict):
		return KindConflict
	case errors.Is(err, task.ErrNotFound):
		return KindNotFound
	case errors.Is(err, task.ErrAmbiguousIdentifier):
		return KindAmbiguousIdentifier
	case errors.Is(err, task.ErrInvalidIdentifier):
		return KindInvalidIdentifier
	case errors.Is(err, task.ErrInvalidName),
		errors.Is(err, task.ErrInvalidPriority),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, task.ErrNoFields),
		errors.Is(err, task.ErrInvalidTransition),
		errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}

// ErrInvalidArgument is returned for argument bags rejected by a tool schema.
var ErrInvalidArgument = errors.New("invalid arguments")
