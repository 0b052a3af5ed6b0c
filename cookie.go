package vellum

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/cookiejar"
	"github.com/vellum-http/vellum/internal/headers"
)

// ErrIllegalCookie reports an RFC 7230/6265 grammar violation in a cookie
// name or value (spec.md §4.3: "Invalid name/value raises
// IllegalArgumentException").
var ErrIllegalCookie = errors.New("vellum: illegal cookie name or value")

// PlainCookie is a single request-side cookie pair, as folded into a
// Cookie header ("name=value; name=value", spec.md §3).
type PlainCookie struct {
	Name  string
	Value string
}

// SetCookie is a response-side cookie, each instance emitting its own
// Set-Cookie header (spec.md §3).
type SetCookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   *int
	Secure   bool
	HttpOnly bool
}

// isCookieToken reports whether s is a valid RFC 7230 token (used for
// cookie names).
func isCookieToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= 0x20 || r >= 0x7f {
			return false
		}
		switch r {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
			return false
		}
	}
	return true
}

// isCookieValue reports whether s is a valid cookie-value: either a
// quoted-string or a bare run of cookie-octets (visible US-ASCII minus
// whitespace, comma, semicolon and backslash; RFC 6265 §4.1.1).
func isCookieValue(s string) bool {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c == 0x22 || c == 0x2c || c == 0x3b || c == 0x5c || c > 0x7e {
			return false
		}
	}
	return true
}

// ParsePlainCookies splits a request Cookie header value on ";" and each
// piece once on "=" (spec.md §4.3 "Parsing request cookies").
func ParsePlainCookies(header string) ([]PlainCookie, error) {
	if header == "" {
		return nil, nil
	}
	pieces := strings.Split(header, ";")
	out := make([]PlainCookie, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, value, _ := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !isCookieToken(name) || !isCookieValue(value) {
			return nil, errors.Wrapf(ErrIllegalCookie, "cookie %q", p)
		}
		out = append(out, PlainCookie{Name: name, Value: value})
	}
	return out, nil
}

// FoldPlainCookies renders cookies as a single Cookie header value.
func FoldPlainCookies(cookies []PlainCookie) string {
	parts := make([]string, len(cookies))
	for i, c := range cookies {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; ")
}

// ParseSetCookie parses one Set-Cookie header value: split once on ";",
// head is name=value, tail folds right over attributes, lowercased
// (spec.md §4.3 "Parsing Set-Cookie"). Unknown attributes are ignored.
func ParseSetCookie(header string) (SetCookie, error) {
	head, tail, _ := strings.Cut(header, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(head), "=")
	if !ok {
		return SetCookie{}, errors.Wrapf(ErrIllegalCookie, "set-cookie %q", header)
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if !isCookieToken(name) || !isCookieValue(value) {
		return SetCookie{}, errors.Wrapf(ErrIllegalCookie, "set-cookie %q", header)
	}
	sc := SetCookie{Name: name, Value: value}

	for _, attr := range strings.Split(tail, ";") {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		k, v, _ := strings.Cut(attr, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		switch k {
		case "domain":
			sc.Domain = v
		case "path":
			sc.Path = v
		case "expires":
			if t, err := headers.ParseHTTPDate(v); err == nil {
				sc.Expires = t
			} else if t, err := time.Parse(time.RFC1123, v); err == nil {
				sc.Expires = t
			}
		case "max-age":
			if n, err := strconv.Atoi(v); err == nil {
				sc.MaxAge = &n
			}
		case "secure":
			sc.Secure = true
		case "httponly":
			sc.HttpOnly = true
		}
	}
	return sc, nil
}

// String renders sc as a Set-Cookie header value.
func (sc SetCookie) String() string {
	var b strings.Builder
	b.WriteString(sc.Name)
	b.WriteByte('=')
	b.WriteString(sc.Value)
	if sc.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(sc.Domain)
	}
	if sc.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(sc.Path)
	}
	if !sc.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(headers.FormatHTTPDate(sc.Expires))
	}
	if sc.MaxAge != nil {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(*sc.MaxAge))
	}
	if sc.Secure {
		b.WriteString("; Secure")
	}
	if sc.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// PersistentCookie is a stored cookie-jar entry (spec.md §3 Cookie sum
// type, PersistentCookie variant), re-exported so CookieStore.List
// callers never need to import internal/cookiejar.
type PersistentCookie = cookiejar.PersistentCookie

// CookieStore is the public facade over the client-side cookie jar
// (spec.md §4.3 CookieStore), wrapping internal/cookiejar's RFC
// 6265 entry store.
type CookieStore struct {
	jar *cookiejar.CookieStore
}

// NewCookieStore returns an empty CookieStore.
func NewCookieStore() *CookieStore {
	return &CookieStore{jar: cookiejar.New()}
}

// Get returns the cookies applicable to target.
func (s *CookieStore) Get(target string) ([]PlainCookie, error) {
	entries, err := s.jar.Get(target)
	if err != nil {
		return nil, err
	}
	out := make([]PlainCookie, len(entries))
	for i, e := range entries {
		out[i] = PlainCookie{Name: e.Name, Value: e.Value}
	}
	return out, nil
}

// Put inserts the Set-Cookie attributes received from target.
func (s *CookieStore) Put(target string, setCookies []SetCookie) error {
	internal := make([]cookiejar.SetCookie, len(setCookies))
	for i, sc := range setCookies {
		internal[i] = cookiejar.SetCookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Domain:   sc.Domain,
			Path:     sc.Path,
			Expires:  sc.Expires,
			MaxAge:   sc.MaxAge,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		}
	}
	return s.jar.Put(target, internal)
}

// List returns every entry currently in the store (spec.md §4.3 "list").
func (s *CookieStore) List() []PersistentCookie { return s.jar.List() }

// Size returns the number of entries currently in the store (spec.md
// §4.3 "size").
func (s *CookieStore) Size() int { return s.jar.Size() }

// Clear removes entries from the store; with expiredOnly set, only
// already-expired entries are removed (spec.md §4.3 "clear(expiredOnly)").
func (s *CookieStore) Clear(expiredOnly bool) { s.jar.Clear(expiredOnly) }
