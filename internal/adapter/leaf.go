package adapter

import (
	"reflect"

	"gihan9a/semilattice/internal/vclock"
)

// ConflictMarker is rendered in place of a value written concurrently by
// several nodes
const ConflictMarker = "VALUE IN CONFLICT"

// LeafOption customizes a Leaf
type LeafOption[T any] func(*Leaf[T])

// OneOf restricts the values a leaf accepts
func OneOf[T comparable](allowed ...T) LeafOption[T] {
	return func(l *Leaf[T]) {
		l.validate = func(v T) error {
			for _, a := range allowed {
				if v == a {
					return nil
				}
			}
			return SchemaMismatch("value %v is not one of %v", v, allowed)
		}
	}
}

// ReadOnly rejects every change to the leaf
func ReadOnly[T any]() LeafOption[T] {
	return func(l *Leaf[T]) {
		l.readOnly = true
	}
}

// Immutable rejects changes once the leaf holds a non-zero value
func Immutable[T any]() LeafOption[T] {
	return func(l *Leaf[T]) {
		l.immutable = true
	}
}

// Leaf adapts a single versioned value
type Leaf[T any] struct {
	value     *vclock.Versioned[T]
	ctx       vclock.Context
	validate  func(T) error
	readOnly  bool
	immutable bool
}

// NewLeaf creates a node over a versioned value
func NewLeaf[T any](value *vclock.Versioned[T], ctx vclock.Context, opts ...LeafOption[T]) *Leaf[T] {
	l := &Leaf[T]{value: value, ctx: ctx}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Leaf[T]) Render() any {
	v, err := l.value.Get()
	if err != nil {
		return ConflictMarker
	}
	return v
}

// Subfields exposes "resolve" while the value is in conflict
func (l *Leaf[T]) Subfields() map[string]Node {
	if l.value.InConflict() {
		return map[string]Node{"resolve": &resolver[T]{leaf: l}}
	}
	return noSubfields()
}

// Apply decodes change into T. Null is accepted only by values that render
// as null when unset (maps, slices, pointers).
func (l *Leaf[T]) Apply(change any) error {
	if change == nil && !nullable[T]() {
		var zero T
		return SchemaMismatch("expected %T, got %s", zero, describe(change))
	}
	v, err := decodeInto[T](change)
	if err != nil {
		return SchemaMismatch("cannot decode %T: %v", v, err)
	}
	return l.set(v)
}

func (l *Leaf[T]) Erase() error {
	return PermissionDenied("value cannot be erased")
}

// Reset restores the zero value. Guarded leaves keep their value.
func (l *Leaf[T]) Reset() error {
	if l.readOnly || l.immutable {
		return nil
	}
	var zero T
	if l.value.Equal(zero) || len(l.value.Entries) == 0 {
		return nil
	}
	l.value.Upgrade(l.ctx, zero)
	return nil
}

func (l *Leaf[T]) set(v T) error {
	// Re-submitting the current value leaves the clock untouched. An unset
	// register holds the zero value.
	if current, err := l.value.Get(); err == nil && reflect.DeepEqual(current, v) {
		return nil
	}
	if l.readOnly {
		return PermissionDenied("value is read-only")
	}
	if l.immutable && !l.unset() {
		return PermissionDenied("value cannot be changed once set")
	}
	if l.validate != nil {
		if err := l.validate(v); err != nil {
			return err
		}
	}
	l.value.Upgrade(l.ctx, v)
	return nil
}

func (l *Leaf[T]) unset() bool {
	for _, v := range l.value.Values() {
		if !reflect.ValueOf(&v).Elem().IsZero() {
			return false
		}
	}
	return true
}

// resolver lists the concurrent values of a leaf and settles them on apply
type resolver[T any] struct {
	leaf *Leaf[T]
}

func (r *resolver[T]) Render() any {
	return r.leaf.value.Values()
}

func (r *resolver[T]) Subfields() map[string]Node {
	return noSubfields()
}

func (r *resolver[T]) Apply(change any) error {
	return r.leaf.Apply(change)
}

func (r *resolver[T]) Erase() error {
	return PermissionDenied("conflict resolution cannot be erased")
}

func (r *resolver[T]) Reset() error {
	return nil
}

func nullable[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}
