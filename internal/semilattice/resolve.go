package semilattice

import "gihan9a/semilattice/internal/adapter"

// Resolve walks resource down from root, one segment per level
func Resolve(root adapter.Node, resource []string) (adapter.Node, error) {
	head := root
	for i, segment := range resource {
		next, ok := head.Subfields()[segment]
		if !ok {
			return nil, &ResolveError{Path: resource, Consumed: i}
		}
		head = next
	}
	return head, nil
}
