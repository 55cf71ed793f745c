package task

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidatePriority parses value into a canonical Priority.
func ValidatePriority(value string) (Priority, error) {
	n := normalize(value)
	for _, p := range Priorities {
		if normalize(string(p)) == n {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of %s", ErrInvalidPriority, value, joinValues(Priorities))
}

// ValidateStatus parses value into a canonical Status.
func ValidateStatus(value string) (Status, error) {
	n := normalize(value)
	for _, s := range Statuses {
		if normalize(string(s)) == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of %s", ErrInvalidStatus, value, joinValues(Statuses))
}

// ValidateName trims name and rejects blank values.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// ParseID parses a numeric task id token. Only tokens that are not base-10
// integers are ErrInvalidIdentifier. Zero and negative ids parse and simply
// match no task; integers beyond int64 cannot name a task and are
// ErrNotFound.
func ParseID(token string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: id=%s", ErrNotFound, strings.TrimSpace(token))
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, token)
	}
	return id, nil
}

// CanTransition reports whether a task may move from one status to another.
// Without strict mode every move is allowed; with it, status may only stay or
// advance along the progression.
func CanTransition(from, to Status, strict bool) error {
	if !strict || from.Rank() <= to.Rank() {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// IdentifierPolicy selects how task identifiers are resolved.
type IdentifierPolicy string

const (
	// PolicyIDOrName matches a numeric id first, then falls back to exact name equality.
	PolicyIDOrName IdentifierPolicy = "id-or-name"
	// PolicyIDOnly accepts numeric ids only.
	PolicyIDOnly IdentifierPolicy = "id-only"
)

// IsValid reports whether p is a known policy.
func (p IdentifierPolicy) IsValid() bool {
	return p == PolicyIDOrName || p == PolicyIDOnly
}

// Resolver turns identifier tokens into tasks.
type Resolver struct {
	Policy IdentifierPolicy
	// StrictNames reports duplicate name matches as ErrAmbiguousIdentifier
	// instead of returning the first match.
	StrictNames bool
}

// Resolve looks up token in store according to the resolver's policy.
func (r Resolver) Resolve(ctx context.Context, store Store, token string) (Task, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Task{}, fmt.Errorf("%w: empty identifier", ErrInvalidIdentifier)
	}

	id, idErr := ParseID(token)
	if idErr == nil {
		t, err := store.Get(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Task{}, err
		}
	}

	if r.Policy == PolicyIDOnly {
		if idErr != nil {
			return Task{}, idErr
		}
		return Task{}, fmt.Errorf("%w: id=%s", ErrNotFound, token)
	}

	matches, err := store.FindByName(ctx, token)
	if err != nil {
		return Task{}, err
	}

	switch {
	case len(matches) == 0:
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, token)
	case len(matches) > 1 && r.StrictNames:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = strconv.FormatInt(m.ID, 10)
		}
		return Task{}, fmt.Errorf("%w: %q (ids %s)", ErrAmbiguousIdentifier, token, strings.Join(ids, ", "))
	}

	return matches[0], nil
}

// ResolveIdentifier resolves token with the default id-or-name policy.
func ResolveIdentifier(ctx context.Context, store Store, token string) (Task, error) {
	return Resolver{Policy: PolicyIDOrName}.Resolve(ctx, store, token)
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
