package vclock

import (
	"maps"

	"github.com/google/uuid"
)

// Clock is a vector clock keyed by the id of the node that performed a write
type Clock map[uuid.UUID]uint64

// Context identifies the node acting on a document during one request
type Context struct {
	Actor uuid.UUID
}

// NewContext creates a version context for the given acting node
func NewContext(actor uuid.UUID) Context {
	return Context{Actor: actor}
}

// LessEq reports whether every component of c is <= the matching component of o
func (c Clock) LessEq(o Clock) bool {
	for id, n := range c {
		if n > o[id] {
			return false
		}
	}
	return true
}

// Equal reports whether both clocks carry the same counters
func (c Clock) Equal(o Clock) bool {
	return c.LessEq(o) && o.LessEq(c)
}

// Before reports whether c happened strictly before o
func (c Clock) Before(o Clock) bool {
	return c.LessEq(o) && !o.LessEq(c)
}

// Max returns the component-wise maximum of both clocks
func (c Clock) Max(o Clock) Clock {
	out := maps.Clone(c)
	if out == nil {
		out = make(Clock)
	}
	for id, n := range o {
		if n > out[id] {
			out[id] = n
		}
	}
	return out
}
