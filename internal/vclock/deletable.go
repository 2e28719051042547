package vclock

// Deletable is a map entry that leaves a tombstone behind when erased.
// Once deleted an entry stays deleted across joins.
type Deletable[T any] struct {
	Deleted bool `json:"deleted,omitempty"`
	Value   T    `json:"value"`
}

// Live wraps value in a live entry
func Live[T any](value T) *Deletable[T] {
	return &Deletable[T]{Value: value}
}

// Erase turns the entry into a tombstone
func (d *Deletable[T]) Erase() {
	var zero T
	d.Deleted = true
	d.Value = zero
}

// JoinMap merges two maps of deletable entries, joining the values present on
// both sides with join
func JoinMap[K comparable, V any](a, b map[K]*Deletable[V], join func(V, V) V) map[K]*Deletable[V] {
	out := make(map[K]*Deletable[V], len(a)+len(b))
	for k, d := range a {
		cp := *d
		out[k] = &cp
	}
	for k, d := range b {
		cur, ok := out[k]
		if !ok {
			cp := *d
			out[k] = &cp
			continue
		}
		if cur.Deleted || d.Deleted {
			cur.Erase()
			continue
		}
		cur.Value = join(cur.Value, d.Value)
	}
	return out
}
