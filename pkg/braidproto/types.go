package braidproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/wI2L/jsondiff"
)

// StatusSubscribed is the status code of a successful subscription
const StatusSubscribed = 209

// Patch represents a patch operation in the Braid protocol
type Patch struct {
	Unit    string `json:"unit"`    // Unit represents the operational unit of the patch, e.g. "replace"
	Range   string `json:"range"`   // Range represents the path of the patch, e.g. "/rdb_namespaces/<uuid>/name"
	Content string `json:"content"` // Content is the actual content of the patch, can be a JSON object
}

// Update represents a Braid protocol update with version, parents, and either patches or a full body
type Update struct {
	Version []string `json:"version"`           // Version identifiers for this update
	Parents []string `json:"parents"`           // Parent versions this update is based on
	Patches []Patch  `json:"patches,omitempty"` // Optional list of patches
	Body    string   `json:"body,omitempty"`    // Optional full body content
}

// FullUpdate creates an update carrying a whole rendering
func FullUpdate(version string, body []byte) Update {
	return Update{Version: []string{version}, Body: string(body)}
}

// DiffUpdate creates an update carrying the JSON patches turning previous into
// next. It returns no patches when both are equal.
func DiffUpdate(version, parent string, previous, next []byte) (Update, error) {
	ops, err := jsondiff.CompareJSON(previous, next)
	if err != nil {
		return Update{}, err
	}

	u := Update{Version: []string{version}, Parents: []string{parent}}
	for _, op := range ops {
		valueJSON, err := json.Marshal(op.Value)
		if err != nil {
			return Update{}, err
		}
		u.Patches = append(u.Patches, Patch{
			Unit:    op.Type,
			Range:   op.Path,
			Content: string(valueJSON),
		})
	}
	return u, nil
}

// WriteTo writes the update in subscription stream framing
func (u Update) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Version: %s\r\n", joinVersions(u.Version))
	fmt.Fprintf(&buf, "Parents: %s\r\n", joinVersions(u.Parents))

	if len(u.Patches) == 0 {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(u.Body))
		fmt.Fprintf(&buf, "\r\n")
		buf.WriteString(u.Body)
	} else {
		// Write patches header if more than one patch
		if len(u.Patches) > 1 {
			fmt.Fprintf(&buf, "Patches: %d\r\n\r\n", len(u.Patches))
		}
		for i, p := range u.Patches {
			if i > 0 {
				fmt.Fprintf(&buf, "\r\n\r\n")
			}
			fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(p.Content))
			fmt.Fprintf(&buf, "Content-Range: %s %s\r\n", p.Unit, p.Range)
			fmt.Fprintf(&buf, "\r\n")
			buf.WriteString(p.Content)
		}
	}

	// Add separator for subscription stream
	fmt.Fprintf(&buf, "\r\n\r\n\r\n\r\n\r\n")
	return buf.WriteTo(w)
}

func joinVersions(versions []string) string {
	var buf bytes.Buffer
	for i, v := range versions {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(v)
	}
	return buf.String()
}
