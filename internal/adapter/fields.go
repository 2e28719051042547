package adapter

import "sort"

// Field names one child of a Fields node
type Field struct {
	Name string
	Node Node
}

// Fields adapts a struct as a fixed set of named children
type Fields struct {
	fields []Field
	index  map[string]Node
}

// NewFields creates a composite node. Children keep the given order.
func NewFields(fields ...Field) *Fields {
	index := make(map[string]Node, len(fields))
	for _, f := range fields {
		index[f.Name] = f.Node
	}
	return &Fields{fields: fields, index: index}
}

func (f *Fields) Render() any {
	out := make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		out[field.Name] = field.Node.Render()
	}
	return out
}

func (f *Fields) Subfields() map[string]Node {
	out := make(map[string]Node, len(f.index))
	for name, n := range f.index {
		out[name] = n
	}
	return out
}

// Apply merges every member of an object into the child of the same name
func (f *Fields) Apply(change any) error {
	obj, ok := change.(map[string]any)
	if !ok {
		return SchemaMismatch("expected an object, got %s", describe(change))
	}

	names := make([]string, 0, len(obj))
	for name := range obj {
		if _, ok := f.index[name]; !ok {
			return SchemaMismatch("unknown field %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := f.index[name].Apply(obj[name]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fields) Erase() error {
	return PermissionDenied("object cannot be erased")
}

func (f *Fields) Reset() error {
	for _, field := range f.fields {
		if err := field.Node.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
