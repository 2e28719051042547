package adapter

import (
	"sort"

	"gihan9a/semilattice/internal/vclock"

	"github.com/google/uuid"
)

// NewKey is the member name that asks a keyed node to create an entry under a
// freshly generated key
const NewKey = "new"

// KeyCodec converts map keys to and from path segments
type KeyCodec[K comparable] struct {
	Parse  func(string) (K, error)
	Format func(K) string
	// Generate creates a fresh key for "new" entries. Nil disables them.
	Generate func() K
}

// UUIDKeys is the codec for maps keyed by UUID
var UUIDKeys = KeyCodec[uuid.UUID]{
	Parse:    uuid.Parse,
	Format:   uuid.UUID.String,
	Generate: uuid.New,
}

// Keyed adapts a map of deletable entries
type Keyed[K comparable, V any] struct {
	entries *map[K]*vclock.Deletable[V]
	ctx     vclock.Context
	keys    KeyCodec[K]
	child   func(*V, vclock.Context) Node
	fresh   func() V

	// values of the entries tombstoned by Reset during this request, which
	// the following Apply may bring back
	cleared map[K]V
}

// NewKeyed creates a node over a map. child builds the node of one value and
// fresh returns the initial value of a created entry.
func NewKeyed[K comparable, V any](entries *map[K]*vclock.Deletable[V], ctx vclock.Context, keys KeyCodec[K], child func(*V, vclock.Context) Node, fresh func() V) *Keyed[K, V] {
	return &Keyed[K, V]{
		entries: entries,
		ctx:     ctx,
		keys:    keys,
		child:   child,
		fresh:   fresh,
		cleared: make(map[K]V),
	}
}

// Render renders every entry by key, tombstones as null
func (k *Keyed[K, V]) Render() any {
	out := make(map[string]any, len(*k.entries))
	for key := range *k.entries {
		out[k.keys.Format(key)] = k.entry(key).Render()
	}
	return out
}

func (k *Keyed[K, V]) Subfields() map[string]Node {
	out := make(map[string]Node, len(*k.entries))
	for key := range *k.entries {
		out[k.keys.Format(key)] = k.entry(key)
	}
	return out
}

// Apply merges each member of an object into the entry it names. Unknown keys
// create entries and null members erase them.
func (k *Keyed[K, V]) Apply(change any) error {
	obj, ok := change.(map[string]any)
	if !ok {
		return SchemaMismatch("expected an object, got %s", describe(change))
	}

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := k.applyMember(name, obj[name]); err != nil {
			return err
		}
	}
	return nil
}

func (k *Keyed[K, V]) applyMember(name string, change any) error {
	var key K
	if name == NewKey && k.keys.Generate != nil {
		key = k.keys.Generate()
	} else {
		parsed, err := k.keys.Parse(name)
		if err != nil {
			return SchemaMismatch("invalid key %q: %v", name, err)
		}
		key = parsed
	}

	if *k.entries == nil {
		*k.entries = make(map[K]*vclock.Deletable[V])
	}

	d, exists := (*k.entries)[key]
	if !exists {
		if change == nil {
			return nil
		}
		d = vclock.Live(k.fresh())
		if err := k.child(&d.Value, k.ctx).Apply(change); err != nil {
			return err
		}
		(*k.entries)[key] = d
		return nil
	}

	if old, ok := k.cleared[key]; ok && d.Deleted {
		if change == nil {
			return nil
		}
		// Reset the previous value rather than starting from a fresh one so
		// every clock moves past the stored copy and the replace survives
		// the join on commit
		d.Deleted = false
		d.Value = old
		delete(k.cleared, key)
		if err := k.child(&d.Value, k.ctx).Reset(); err != nil {
			return err
		}
	}
	if change == nil {
		return k.entry(key).Erase()
	}
	return k.entry(key).Apply(change)
}

func (k *Keyed[K, V]) Erase() error {
	return PermissionDenied("collection cannot be erased")
}

// Reset tombstones every live entry
func (k *Keyed[K, V]) Reset() error {
	for key, d := range *k.entries {
		if d.Deleted {
			continue
		}
		k.cleared[key] = d.Value
		d.Erase()
	}
	return nil
}

func (k *Keyed[K, V]) entry(key K) *entry[K, V] {
	return &entry[K, V]{parent: k, key: key, d: (*k.entries)[key]}
}

// entry adapts one value of a keyed map
type entry[K comparable, V any] struct {
	parent *Keyed[K, V]
	key    K
	d      *vclock.Deletable[V]
	node   Node
}

func (e *entry[K, V]) value() Node {
	if e.node == nil {
		e.node = e.parent.child(&e.d.Value, e.parent.ctx)
	}
	return e.node
}

func (e *entry[K, V]) gone() error {
	return Gone("%s has been deleted", e.parent.keys.Format(e.key))
}

func (e *entry[K, V]) Render() any {
	if e.d.Deleted {
		return nil
	}
	return e.value().Render()
}

func (e *entry[K, V]) Subfields() map[string]Node {
	if e.d.Deleted {
		return noSubfields()
	}
	return e.value().Subfields()
}

func (e *entry[K, V]) Apply(change any) error {
	if e.d.Deleted {
		return e.gone()
	}
	return e.value().Apply(change)
}

func (e *entry[K, V]) Erase() error {
	e.d.Erase()
	e.node = nil
	return nil
}

func (e *entry[K, V]) Reset() error {
	if e.d.Deleted {
		return e.gone()
	}
	return e.value().Reset()
}
