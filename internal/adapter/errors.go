package adapter

import (
	"errors"
	"fmt"
)

// Errors raised by adapter operations
var (
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrPermissionDenied = errors.New("permission denied")
	ErrGone             = errors.New("gone")
)

// SchemaMismatch reports a partial value whose shape does not fit its target
func SchemaMismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

// PermissionDenied reports a write to a field that may not be changed
func PermissionDenied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

// Gone reports access to an entry that has been deleted
func Gone(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGone, fmt.Sprintf(format, args...))
}
