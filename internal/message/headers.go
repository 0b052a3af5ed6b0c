// Package message implements the wire-independent value types the
// connection engine passes between the reader, the handler pipeline, and
// the writer: headers, request/response lines, entities, and the
// attribute bag attached to every message.
package message

import "strings"

// Header is a single name/value pair as it appears on the wire. Multiple
// headers with the same name (e.g. Set-Cookie) are represented as
// multiple Header values in a Headers slice, in insertion order.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered sequence of header fields. Name lookups are
// case-insensitive; each Header keeps its name in the case it was added
// or set with.
type Headers []Header

// Get returns the first value for name, and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			return header.Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name, in insertion order.
func (h Headers) GetAll(name string) []string {
	var values []string
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			values = append(values, header.Value)
		}
	}
	return values
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Set returns a copy of h with every existing occurrence of name removed
// and a single occurrence of (name, value) appended.
func (h Headers) Set(name, value string) Headers {
	out := h.Removed(name)
	return append(out, Header{Name: name, Value: value})
}

// Add returns a copy of h with (name, value) appended, preserving any
// existing occurrences of name. Used for multi-valued headers such as
// Set-Cookie.
func (h Headers) Add(name, value string) Headers {
	out := make(Headers, len(h), len(h)+1)
	copy(out, h)
	return append(out, Header{Name: name, Value: value})
}

// Removed returns a copy of h with every occurrence of name removed.
func (h Headers) Removed(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, header := range h {
		if !strings.EqualFold(header.Name, name) {
			out = append(out, header)
		}
	}
	return out
}

// Clone returns an independent copy of h.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	copy(out, h)
	return out
}
