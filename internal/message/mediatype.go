package message

import (
	"mime"
	"sort"
	"strings"
)

// MediaType is a parsed Content-Type / Accept value: "type/subtype;
// param=value; ...". Per spec.md §1 this grammar primitive is treated as
// an external collaborator with an obvious parser — mime.ParseMediaType
// is that parser.
type MediaType struct {
	Type    string
	Subtype string
	Params  map[string]string
}

// ParseMediaType parses s into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	full, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, err
	}
	t, sub, _ := strings.Cut(full, "/")
	return MediaType{Type: t, Subtype: sub, Params: params}, nil
}

// String renders the MediaType back to wire form.
func (m MediaType) String() string {
	var b strings.Builder
	b.WriteString(m.Type)
	b.WriteByte('/')
	b.WriteString(m.Subtype)

	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("; ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Params[k])
	}
	return b.String()
}

// Matches reports whether m is compatible with accept, honoring "*/*"
// and "type/*" wildcards in accept only; a wildcard in m is compared
// literally. Used by the static file handler
// (spec.md §4.6) to decide 406 Not Acceptable.
func (m MediaType) Matches(accept MediaType) bool {
	if accept.Type == "*" {
		return true
	}
	if accept.Type != m.Type {
		return false
	}
	return accept.Subtype == "*" || accept.Subtype == m.Subtype
}
