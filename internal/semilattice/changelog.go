package semilattice

import "strings"

// AbsoluteChange nests a partial value under the resource path it targets so
// that it reads as a change to the whole document
func AbsoluteChange(resource []string, change any) any {
	if len(resource) == 0 {
		return change
	}
	out := change
	for i := len(resource) - 1; i >= 0; i-- {
		out = map[string]any{resource[i]: out}
	}
	return out
}

func joinPath(resource []string) string {
	return strings.Join(resource, "/")
}
