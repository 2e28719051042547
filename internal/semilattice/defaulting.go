package semilattice

import "github.com/google/uuid"

// DefaultingMap is a map that answers a fixed default for keys never set
type DefaultingMap[K comparable, V any] struct {
	def     V
	entries map[K]V
}

// NewDefaultingMap creates an empty map answering def for every key
func NewDefaultingMap[K comparable, V any](def V) DefaultingMap[K, V] {
	return DefaultingMap[K, V]{def: def, entries: make(map[K]V)}
}

// Get returns the value stored for key, or the default
func (m DefaultingMap[K, V]) Get(key K) V {
	if v, ok := m.entries[key]; ok {
		return v
	}
	return m.def
}

// Set stores value for key
func (m *DefaultingMap[K, V]) Set(key K, value V) {
	if m.entries == nil {
		m.entries = make(map[K]V)
	}
	m.entries[key] = value
}

// Default returns the value answered for unset keys
func (m DefaultingMap[K, V]) Default() V {
	return m.def
}

// Len returns the number of explicitly set keys
func (m DefaultingMap[K, V]) Len() int {
	return len(m.entries)
}

// PriorityMap tells a recompute callback which namespaces should have their
// work redistributed
type PriorityMap = DefaultingMap[uuid.UUID, bool]

// NoPriority is the policy that prioritizes nothing
func NoPriority() PriorityMap {
	return NewDefaultingMap[uuid.UUID](false)
}
