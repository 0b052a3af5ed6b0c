package message

import (
	"fmt"

	"github.com/pkg/errors"
)

// HttpVersion identifies the protocol version on a request or status
// line. Only HTTP/1.1 is accepted by the connection engine (spec.md §6);
// the type itself is version-agnostic so error paths can still report
// what a client asked for.
type HttpVersion struct {
	Major int
	Minor int
}

// HTTP11 is the sole version the engine serves.
var HTTP11 = HttpVersion{Major: 1, Minor: 1}

func (v HttpVersion) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}

// IsHTTP11 reports whether v is exactly HTTP/1.1.
func (v HttpVersion) IsHTTP11() bool {
	return v == HTTP11
}

// ParseHttpVersion parses a token of the form "HTTP/<major>.<minor>".
func ParseHttpVersion(s string) (HttpVersion, error) {
	var v HttpVersion
	if n, err := fmt.Sscanf(s, "HTTP/%d.%d", &v.Major, &v.Minor); err != nil || n != 2 {
		return HttpVersion{}, errors.Errorf("malformed HTTP version: %q", s)
	}
	return v, nil
}
