package semilattice

import (
	"errors"
	"fmt"
)

// Errors produced while handling a request
var (
	ErrNotFound    = errors.New("resource not found")
	ErrBadPriority = errors.New("invalid prefer_distribution")

	// ErrCannotSatisfyGoals is returned by a recompute callback that finds no
	// derived state matching the document
	ErrCannotSatisfyGoals = errors.New("cannot satisfy goals")
)

// CannotSatisfyGoals wraps ErrCannotSatisfyGoals with a description
func CannotSatisfyGoals(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCannotSatisfyGoals, fmt.Sprintf(format, args...))
}

// ResolveError reports a path segment with no matching child
type ResolveError struct {
	Path     []string
	Consumed int
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("no field %q at /%s", e.Path[e.Consumed], joinPath(e.Path[:e.Consumed]))
}

func (e *ResolveError) Unwrap() error {
	return ErrNotFound
}
