package semilattice

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// PriorityParam is the query parameter selecting the distribution policy
const PriorityParam = "prefer_distribution"

// Values accepted for PriorityParam
const (
	PriorityNone        = "none"
	PriorityAll         = "all"
	PriorityChangedOnly = "changed_only"
)

// NamespaceProtocols are the top-level collections holding namespaces
var NamespaceProtocols = []string{"rdb_namespaces", "dummy_namespaces", "memcached_namespaces"}

// ParsePriority builds the priority policy for a request. present is false when
// the parameter was not given at all.
func ParsePriority(value string, present bool, resource []string) (PriorityMap, error) {
	if !present {
		return NoPriority(), nil
	}

	switch value {
	case PriorityNone:
		return NoPriority(), nil
	case PriorityAll:
		return NewDefaultingMap[uuid.UUID](true), nil
	case PriorityChangedOnly:
		ns, err := ResourceNamespace(resource)
		if err != nil {
			return PriorityMap{}, err
		}
		prio := NoPriority()
		prio.Set(ns, true)
		return prio, nil
	default:
		return PriorityMap{}, fmt.Errorf("%w: unknown value %q", ErrBadPriority, value)
	}
}

// ResourceNamespace extracts the namespace id a resource path points into
func ResourceNamespace(resource []string) (uuid.UUID, error) {
	if len(resource) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no namespace protocol defined", ErrBadPriority)
	}
	if !slices.Contains(NamespaceProtocols, resource[0]) {
		return uuid.Nil, fmt.Errorf("%w: unhandled namespace protocol %s", ErrBadPriority, resource[0])
	}
	if len(resource) < 2 {
		return uuid.Nil, fmt.Errorf("%w: no namespace defined", ErrBadPriority)
	}
	id, err := uuid.Parse(resource[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: unable to decode UUID %s", ErrBadPriority, resource[1])
	}
	return id, nil
}
