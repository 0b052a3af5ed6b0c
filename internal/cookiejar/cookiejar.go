// Package cookiejar implements the client-side CookieStore (spec.md §4.3):
// an RFC 6265 entry store keyed by (name, domain, path), with public-suffix
// rejection on insert and expiry/domain/path/secure filtering on lookup.
// It is a direct, renamed adaptation of the juju/navindex-colly forks of
// net/http/cookiejar — domainMatch/pathMatch/byPathLength and the entry key (id) carry over
// almost verbatim, since RFC 6265 semantics do not change across repos.
package cookiejar

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

// PersistentCookie is a stored cookie entry (spec.md §3 Cookie sum type,
// PersistentCookie variant).
type PersistentCookie struct {
	Name       string
	Value      string
	Domain     string
	Path       string
	HostOnly   bool
	SecureOnly bool
	HttpOnly   bool
	Persistent bool
	Creation   time.Time
	LastAccess time.Time
	Expiry     time.Time
}

func (e *PersistentCookie) id() string { return e.Domain + ";" + e.Path + ";" + e.Name }

// domainMatch implements RFC 6265 §5.1.3: equal, or host ends with
// "."+cookie-domain and the cookie is not host-only.
func (e *PersistentCookie) domainMatch(host string) bool {
	if e.Domain == host {
		return true
	}
	return !e.HostOnly && hasDotSuffix(host, e.Domain)
}

// pathMatch implements RFC 6265 §5.1.4.
func (e *PersistentCookie) pathMatch(requestPath string) bool {
	if requestPath == e.Path {
		return true
	}
	if strings.HasPrefix(requestPath, e.Path) {
		if e.Path[len(e.Path)-1] == '/' {
			return true
		} else if requestPath[len(e.Path)] == '/' {
			return true
		}
	}
	return false
}

func (e *PersistentCookie) shouldSend(now time.Time, secure bool, host, path string) bool {
	if !e.Expiry.IsZero() && !e.Expiry.After(now) {
		return false
	}
	return e.domainMatch(host) && e.pathMatch(path) && (secure || !e.SecureOnly)
}

func hasDotSuffix(s, suffix string) bool {
	return len(s) > len(suffix) && s[len(s)-len(suffix)-1] == '.' && s[len(s)-len(suffix):] == suffix
}

// byPathLength sorts by descending path length, then ascending creation
// time (RFC 6265 §5.4 point 2), matching spec.md §4.3 get().
type byPathLength []*PersistentCookie

func (s byPathLength) Len() int      { return len(s) }
func (s byPathLength) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byPathLength) Less(i, j int) bool {
	e0, e1 := s[i], s[j]
	if len(e0.Path) != len(e1.Path) {
		return len(e0.Path) > len(e1.Path)
	}
	return e0.Creation.Before(e1.Creation)
}

// SetCookie is the incoming Set-Cookie attribute bundle handed to
// CookieStore.Put (spec.md §3 Cookie sum type, SetCookie variant).
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

// PlainCookie is a single request-side name/value pair (spec.md §3,
// PlainCookie variant), as returned by CookieStore.Get.
type PlainCookie struct {
	Name  string
	Value string
}

var (
	ErrIllegalDomain = errors.New("cookiejar: domain is a public suffix")
	ErrNoHostname    = errors.New("cookiejar: target has no hostname")
)

// CookieStore is a thread-safe RFC 6265 entry store (spec.md §4.3). The
// zero value is not usable; use New.
type CookieStore struct {
	mu      sync.Mutex
	entries map[string]*PersistentCookie // keyed by id()
}

// New returns an empty CookieStore.
func New() *CookieStore {
	return &CookieStore{entries: make(map[string]*PersistentCookie)}
}

// normalizeTarget validates and defaults a target URI per spec.md §4.3
// get()/put(): absolute, scheme in {http,https,ws,wss}, path defaults to
// "/".
func normalizeTarget(target string) (u *url.URL, secure bool, host, path string, err error) {
	u, err = url.Parse(target)
	if err != nil {
		return nil, false, "", "", errors.Wrap(err, "cookiejar: malformed target")
	}
	if !u.IsAbs() {
		return nil, false, "", "", errors.New("cookiejar: target must be absolute")
	}
	switch u.Scheme {
	case "http", "ws":
		secure = false
	case "https", "wss":
		secure = true
	default:
		return nil, false, "", "", errors.Errorf("cookiejar: unsupported scheme %q", u.Scheme)
	}
	host = strings.ToLower(u.Hostname())
	if host == "" {
		return nil, false, "", "", ErrNoHostname
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return u, secure, host, path, nil
}

// Get returns the cookies in the store matching target, per spec.md
// §4.3: filtered by expiry, domain-match, path-match and secure-match,
// sorted by descending path length then ascending creation, mapped to
// PlainCookie. Returned entries have their LastAccess touched.
func (s *CookieStore) Get(target string) ([]PlainCookie, error) {
	_, secure, host, path, err := normalizeTarget(target)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*PersistentCookie
	for _, e := range s.entries {
		if e.shouldSend(now, secure, host, path) {
			e.LastAccess = now
			matched = append(matched, e)
		}
	}
	sort.Sort(byPathLength(matched))

	out := make([]PlainCookie, len(matched))
	for i, e := range matched {
		out[i] = PlainCookie{Name: e.Name, Value: e.Value}
	}
	return out, nil
}

// Put inserts setCookies as received from target, per spec.md §4.3
// put(): domain defaults to the target host lowercased, path defaults to
// the target's raw path, hostOnly is true iff no Domain attribute was
// present. A cookie whose effective domain is a registrable public
// suffix is rejected. Replacing an entry with the same (name, domain,
// path) preserves its original creation time.
func (s *CookieStore) Put(target string, setCookies []SetCookie) error {
	_, _, host, path, err := normalizeTarget(target)
	if err != nil {
		return err
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range setCookies {
		e, err := s.buildEntry(sc, now, host, path)
		if err != nil {
			continue
		}
		id := e.id()
		if old, ok := s.entries[id]; ok {
			e.Creation = old.Creation
		} else {
			e.Creation = now
		}
		e.LastAccess = now
		s.entries[id] = e
	}
	return nil
}

// List returns every entry currently in the store, expired or not, in
// no particular order (spec.md §8 "CookieStore.get(t) is a subset of
// list").
func (s *CookieStore) List() []PersistentCookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PersistentCookie, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Size returns the number of entries currently in the store.
func (s *CookieStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes entries from the store (spec.md §4.3 "clear(expiredOnly)").
// With expiredOnly set, only entries whose Expiry has already passed are
// removed (spec.md §3 "An entry with expiry in the past is treated as
// absent and is removed by clear(expiredOnly=true)"); otherwise every
// entry is removed.
func (s *CookieStore) Clear(expiredOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !expiredOnly {
		s.entries = make(map[string]*PersistentCookie)
		return
	}
	now := time.Now()
	for id, e := range s.entries {
		if !e.Expiry.IsZero() && !e.Expiry.After(now) {
			delete(s.entries, id)
		}
	}
}

var endOfTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

func (s *CookieStore) buildEntry(sc SetCookie, now time.Time, host, defPath string) (*PersistentCookie, error) {
	e := &PersistentCookie{
		Name:       sc.Name,
		Value:      sc.Value,
		SecureOnly: sc.Secure,
		HttpOnly:   sc.HttpOnly,
	}

	if sc.Path == "" || sc.Path[0] != '/' {
		e.Path = defPath
	} else {
		e.Path = sc.Path
	}

	domain, hostOnly, err := domainAndType(host, sc.Domain)
	if err != nil {
		return nil, err
	}
	e.Domain = domain
	e.HostOnly = hostOnly

	if sc.MaxAge != nil {
		e.Persistent = true
		e.Expiry = now.Add(time.Duration(*sc.MaxAge) * time.Second)
	} else if sc.Expires.IsZero() {
		e.Expiry = endOfTime
	} else {
		e.Persistent = true
		e.Expiry = sc.Expires
	}

	return e, nil
}

// domainAndType determines a cookie's stored domain and hostOnly flag,
// rejecting a domain attribute naming a public suffix (spec.md §4.3,
// "Cookies whose normalized domain is a public suffix are rejected on
// insert").
func domainAndType(host, domain string) (string, bool, error) {
	if domain == "" {
		return host, true, nil
	}
	if isIP(host) {
		return "", false, ErrNoHostname
	}
	if domain[0] == '.' {
		domain = domain[1:]
	}
	if domain == "" {
		return "", false, errors.New("cookiejar: malformed Domain attribute")
	}
	domain = strings.ToLower(domain)
	if domain[len(domain)-1] == '.' {
		return "", false, errors.New("cookiejar: malformed Domain attribute")
	}

	if ps := publicsuffix.PublicSuffix(domain); ps == domain {
		return "", false, ErrIllegalDomain
	}

	if host != domain && !hasDotSuffix(host, domain) {
		return "", false, ErrIllegalDomain
	}
	return domain, false, nil
}

func isIP(host string) bool { return net.ParseIP(host) != nil }
