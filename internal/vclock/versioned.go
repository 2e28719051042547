package vclock

import (
	"errors"
	"reflect"
)

// ErrInConflict is returned when a register holds concurrent values
var ErrInConflict = errors.New("value in conflict")

// Entry is one value of a register together with the clock it was written at
type Entry[T any] struct {
	Clock Clock `json:"clock"`
	Value T     `json:"value"`
}

// Versioned is a multi-value register. Concurrent writes are kept side by side
// until a later write dominates all of them.
type Versioned[T any] struct {
	Entries []Entry[T] `json:"entries,omitempty"`
}

// NewVersioned creates a register holding value written by actor
func NewVersioned[T any](actor Context, value T) Versioned[T] {
	var v Versioned[T]
	v.Upgrade(actor, value)
	return v
}

// InConflict reports whether the register holds more than one concurrent value
func (v Versioned[T]) InConflict() bool {
	return len(v.Entries) > 1
}

// Get returns the current value, or the zero value for an unwritten register
func (v Versioned[T]) Get() (T, error) {
	var zero T
	switch len(v.Entries) {
	case 0:
		return zero, nil
	case 1:
		return v.Entries[0].Value, nil
	default:
		return zero, ErrInConflict
	}
}

// Values returns every concurrent value in the register
func (v Versioned[T]) Values() []T {
	out := make([]T, 0, len(v.Entries))
	for _, e := range v.Entries {
		out = append(out, e.Value)
	}
	return out
}

// Clock returns the maximum of all entry clocks
func (v Versioned[T]) Clock() Clock {
	clock := make(Clock)
	for _, e := range v.Entries {
		clock = clock.Max(e.Clock)
	}
	return clock
}

// Upgrade replaces the register content with value, written after every
// entry currently in the register
func (v *Versioned[T]) Upgrade(ctx Context, value T) {
	clock := v.Clock()
	clock[ctx.Actor]++
	v.Entries = []Entry[T]{{Clock: clock, Value: value}}
}

// Join merges two registers, keeping only the entries not dominated by another
func (v Versioned[T]) Join(o Versioned[T]) Versioned[T] {
	all := append(append([]Entry[T]{}, v.Entries...), o.Entries...)
	var out []Entry[T]
	for i, e := range all {
		dominated := false
		for j, other := range all {
			if i == j {
				continue
			}
			if e.Clock.Before(other.Clock) {
				dominated = true
				break
			}
			// an identical clock and value is the same write seen twice; keep
			// the first copy. Different values under one clock were written
			// concurrently from a single snapshot and stay in conflict.
			if j < i && e.Clock.Equal(other.Clock) && reflect.DeepEqual(e.Value, other.Value) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, e)
		}
	}
	return Versioned[T]{Entries: out}
}

// Equal reports whether the register holds exactly value and is not in conflict
func (v Versioned[T]) Equal(value T) bool {
	if len(v.Entries) != 1 {
		return false
	}
	return reflect.DeepEqual(v.Entries[0].Value, value)
}
