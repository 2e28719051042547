// Package adapter exposes typed document fields as a uniform tree of nodes that
// can be rendered to JSON values, partially updated from JSON values, and
// navigated by child name.
package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is one addressable field of a document.
//
// Render returns a JSON-encodable value and never fails. Apply merges a decoded
// JSON value (as produced by encoding/json with UseNumber) into the field.
// Reset clears the field ahead of an Apply so the pair behaves as a replace.
type Node interface {
	Render() any
	Subfields() map[string]Node
	Apply(change any) error
	Erase() error
	Reset() error
}

// Decode parses a request body into the generic form accepted by Apply
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Trailing data after the first value is not a valid body
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after offset %d", dec.InputOffset())
	}
	return v, nil
}

// decodeInto converts a generic value into T
func decodeInto[T any](change any) (T, error) {
	var out T
	data, err := json.Marshal(change)
	if err != nil {
		return out, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func noSubfields() map[string]Node {
	return map[string]Node{}
}
