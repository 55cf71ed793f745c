// Package task defines the task domain model, the record store contract, and
// the validation rules applied before anything reaches a store.
package task

import (
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every valid priority, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// DefaultPriority is assigned when add is called without a priority.
const DefaultPriority = PriorityMedium

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p Priority) String() string { return string(p) }

// Status is the lifecycle state of a task. The declaration order is the
// expected progression; it is only enforced when strict transitions are on.
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusInReview   Status = "InReview"
	StatusDone       Status = "Done"
)

// Statuses lists every valid status in progression order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusInReview, StatusDone}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of s in the progression, or -1 if s is unknown.
func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

func (s Status) String() string { return string(s) }

// Task is a single persisted unit of trackable work.
type Task struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask holds the caller-supplied fields for Store.Insert.
type NewTask struct {
	Name     string
	Priority Priority
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Status   *Status
	Priority *Priority
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.Priority == nil
}

// Apply returns t with the patch applied and UpdatedAt set to now.
func (p Patch) Apply(t Task, now time.Time) Task {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	t.UpdatedAt = now
	return t
}

// ListFilter holds equality predicates for Store.List. Empty fields match all.
type ListFilter struct {
	Status   Status
	Priority Priority
}

// Matches reports whether t satisfies every predicate in the filter.
func (f ListFilter) Matches(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// IsZero reports whether the filter has no predicates.
func (f ListFilter) IsZero() bool {
	return f.Status == "" && f.Priority == ""
}

// normalize folds case and strips separators so "in progress", "in_progress"
// and "InProgress" compare equal.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
