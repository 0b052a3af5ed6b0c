// Package headers implements the typed getter/setter pairs spec.md §4.2
// requires for the well-known HTTP headers: has*/ *(..)/ *Option/ set*/
// *Removed over an internal/message.Headers list. The pattern is
// mechanical, so it is generated by hand once per header rather than via
// reflection, matching the style of other_examples' fasthttp header.go
// (explicit ContentType()/SetContentType() pairs rather than a generic
// map-backed accessor).
package headers

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/message"
)

// ErrHeaderNotFound is returned by a *(..) accessor when the header is
// absent. Use the matching *Option accessor to avoid the error path.
var ErrHeaderNotFound = errors.New("headers: not found")

// HTTPDateLayout is the sole wire format for HTTP-date values (RFC 7231
// §7.1.1.1 IMF-fixdate), matching net/http's TimeFormat.
const HTTPDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// ParseHTTPDate parses an HTTP-date header value.
func ParseHTTPDate(s string) (time.Time, error) {
	return time.Parse(HTTPDateLayout, s)
}

// FormatHTTPDate renders t as an HTTP-date header value, in UTC.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(HTTPDateLayout)
}

// splitList parses a comma-delimited list header value into trimmed,
// non-empty tokens.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(vs []string) string {
	return strings.Join(vs, ", ")
}

// --- Content-Type --------------------------------------------------------

func HasContentType(h message.Headers) bool { return h.Has("Content-Type") }

func ContentType(h message.Headers) (message.MediaType, error) {
	v, ok := h.Get("Content-Type")
	if !ok {
		return message.MediaType{}, ErrHeaderNotFound
	}
	return message.ParseMediaType(v)
}

func ContentTypeOption(h message.Headers) (message.MediaType, bool) {
	mt, err := ContentType(h)
	return mt, err == nil
}

func SetContentType(h message.Headers, mt message.MediaType) message.Headers {
	return h.Set("Content-Type", mt.String())
}

func ContentTypeRemoved(h message.Headers) message.Headers { return h.Removed("Content-Type") }

// --- Content-Length -------------------------------------------------------

func HasContentLength(h message.Headers) bool { return h.Has("Content-Length") }

func ContentLength(h message.Headers) (int64, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, ErrHeaderNotFound
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "headers: malformed Content-Length")
	}
	return n, nil
}

func ContentLengthOption(h message.Headers) (int64, bool) {
	n, err := ContentLength(h)
	return n, err == nil
}

func SetContentLength(h message.Headers, n int64) message.Headers {
	return h.Set("Content-Length", strconv.FormatInt(n, 10))
}

func ContentLengthRemoved(h message.Headers) message.Headers { return h.Removed("Content-Length") }

// --- Content-Encoding -------------------------------------------------------

func HasContentEncoding(h message.Headers) bool { return h.Has("Content-Encoding") }

func ContentEncoding(h message.Headers) ([]string, error) {
	v, ok := h.Get("Content-Encoding")
	if !ok {
		return nil, ErrHeaderNotFound
	}
	return splitList(v), nil
}

func ContentEncodingOption(h message.Headers) ([]string, bool) {
	v, err := ContentEncoding(h)
	return v, err == nil
}

func SetContentEncoding(h message.Headers, encodings []string) message.Headers {
	return h.Set("Content-Encoding", joinList(encodings))
}

func ContentEncodingRemoved(h message.Headers) message.Headers {
	return h.Removed("Content-Encoding")
}

// --- Content-Disposition -------------------------------------------------------

func HasContentDisposition(h message.Headers) bool { return h.Has("Content-Disposition") }

func ContentDisposition(h message.Headers) (string, error) {
	v, ok := h.Get("Content-Disposition")
	if !ok {
		return "", ErrHeaderNotFound
	}
	return v, nil
}

func ContentDispositionOption(h message.Headers) (string, bool) {
	return h.Get("Content-Disposition")
}

func SetContentDisposition(h message.Headers, v string) message.Headers {
	return h.Set("Content-Disposition", v)
}

// --- Content-Language / Content-Location / Content-Range --------------------

func ContentLanguageOption(h message.Headers) (string, bool) { return h.Get("Content-Language") }
func SetContentLanguage(h message.Headers, v string) message.Headers {
	return h.Set("Content-Language", v)
}

func ContentLocationOption(h message.Headers) (string, bool) { return h.Get("Content-Location") }
func SetContentLocation(h message.Headers, v string) message.Headers {
	return h.Set("Content-Location", v)
}

func ContentRangeOption(h message.Headers) (string, bool) { return h.Get("Content-Range") }
func SetContentRange(h message.Headers, v string) message.Headers {
	return h.Set("Content-Range", v)
}

// --- Connection -------------------------------------------------------

func HasConnection(h message.Headers) bool { return h.Has("Connection") }

func Connection(h message.Headers) ([]string, error) {
	v, ok := h.Get("Connection")
	if !ok {
		return nil, ErrHeaderNotFound
	}
	return splitList(v), nil
}

func ConnectionOption(h message.Headers) ([]string, bool) {
	v, err := Connection(h)
	return v, err == nil
}

func SetConnection(h message.Headers, tokens []string) message.Headers {
	return h.Set("Connection", joinList(tokens))
}

func ConnectionRemoved(h message.Headers) message.Headers { return h.Removed("Connection") }

// ConnectionHasToken reports whether Connection contains token
// case-insensitively, as required by the keep-alive policy (spec.md
// §4.5.1).
func ConnectionHasToken(h message.Headers, token string) bool {
	tokens, ok := ConnectionOption(h)
	if !ok {
		return false
	}
	for _, t := range tokens {
		if strings.EqualFold(t, token) {
			return true
		}
	}
	return false
}

// --- Transfer-Encoding -------------------------------------------------------

func HasTransferEncoding(h message.Headers) bool { return h.Has("Transfer-Encoding") }

func TransferEncoding(h message.Headers) ([]string, error) {
	v, ok := h.Get("Transfer-Encoding")
	if !ok {
		return nil, ErrHeaderNotFound
	}
	return splitList(v), nil
}

func TransferEncodingOption(h message.Headers) ([]string, bool) {
	v, err := TransferEncoding(h)
	return v, err == nil
}

func SetTransferEncoding(h message.Headers, encodings []string) message.Headers {
	return h.Set("Transfer-Encoding", joinList(encodings))
}

func TransferEncodingRemoved(h message.Headers) message.Headers {
	return h.Removed("Transfer-Encoding")
}

// IsChunked reports whether the last Transfer-Encoding token is "chunked".
func IsChunked(h message.Headers) bool {
	encs, ok := TransferEncodingOption(h)
	return ok && len(encs) > 0 && strings.EqualFold(encs[len(encs)-1], "chunked")
}

// --- Host -------------------------------------------------------

func HasHost(h message.Headers) bool { return h.Has("Host") }

func Host(h message.Headers) (string, error) {
	v, ok := h.Get("Host")
	if !ok {
		return "", ErrHeaderNotFound
	}
	return v, nil
}

func HostOption(h message.Headers) (string, bool) { return h.Get("Host") }

func SetHost(h message.Headers, v string) message.Headers { return h.Set("Host", v) }

// --- Date -------------------------------------------------------

func HasDate(h message.Headers) bool { return h.Has("Date") }

func Date(h message.Headers) (time.Time, error) {
	v, ok := h.Get("Date")
	if !ok {
		return time.Time{}, ErrHeaderNotFound
	}
	return ParseHTTPDate(v)
}

func DateOption(h message.Headers) (time.Time, bool) {
	t, err := Date(h)
	return t, err == nil
}

func SetDate(h message.Headers, t time.Time) message.Headers {
	return h.Set("Date", FormatHTTPDate(t))
}

// --- Last-Modified / If-Modified-Since / If-Unmodified-Since ---------------

func LastModifiedOption(h message.Headers) (time.Time, bool) {
	v, ok := h.Get("Last-Modified")
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseHTTPDate(v)
	return t, err == nil
}

func SetLastModified(h message.Headers, t time.Time) message.Headers {
	return h.Set("Last-Modified", FormatHTTPDate(t))
}

func IfModifiedSinceOption(h message.Headers) (time.Time, bool) {
	v, ok := h.Get("If-Modified-Since")
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseHTTPDate(v)
	return t, err == nil
}

func SetIfModifiedSince(h message.Headers, t time.Time) message.Headers {
	return h.Set("If-Modified-Since", FormatHTTPDate(t))
}

func IfUnmodifiedSinceOption(h message.Headers) (time.Time, bool) {
	v, ok := h.Get("If-Unmodified-Since")
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseHTTPDate(v)
	return t, err == nil
}

// --- ETag / If-Match / If-None-Match ---------------------------------------

func ETagOption(h message.Headers) (string, bool) { return h.Get("ETag") }
func SetETag(h message.Headers, v string) message.Headers {
	return h.Set("ETag", v)
}

func IfMatchOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("If-Match")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func IfNoneMatchOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("If-None-Match")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

// --- Location -------------------------------------------------------

func LocationOption(h message.Headers) (string, bool) { return h.Get("Location") }
func SetLocation(h message.Headers, v string) message.Headers {
	return h.Set("Location", v)
}

// --- Accept / Accept-Encoding / Accept-Language / Accept-Charset / Accept-Ranges / Accept-Patch

func AcceptOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Accept")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetAccept(h message.Headers, v []string) message.Headers {
	return h.Set("Accept", joinList(v))
}

func AcceptEncodingOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Accept-Encoding")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetAcceptEncoding(h message.Headers, v []string) message.Headers {
	return h.Set("Accept-Encoding", joinList(v))
}

func AcceptLanguageOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Accept-Language")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func AcceptCharsetOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Accept-Charset")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func HasAcceptRanges(h message.Headers) bool { return h.Has("Accept-Ranges") }
func SetAcceptRanges(h message.Headers, v string) message.Headers {
	return h.Set("Accept-Ranges", v)
}

func AcceptPatchOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Accept-Patch")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

// --- Range -------------------------------------------------------

func RangeOption(h message.Headers) (string, bool) { return h.Get("Range") }

// --- Cache-Control -------------------------------------------------------

func CacheControlOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Cache-Control")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetCacheControl(h message.Headers, directives []string) message.Headers {
	return h.Set("Cache-Control", joinList(directives))
}

// --- Keep-Alive -------------------------------------------------------

// KeepAliveValue renders the Keep-Alive response header value
// (spec.md §4.5.1): "timeout=<seconds>, max=<remaining>".
func KeepAliveValue(timeoutSeconds, max int) string {
	return "timeout=" + strconv.Itoa(timeoutSeconds) + ", max=" + strconv.Itoa(max)
}

func SetKeepAlive(h message.Headers, timeoutSeconds, max int) message.Headers {
	return h.Set("Keep-Alive", KeepAliveValue(timeoutSeconds, max))
}

// --- Retry-After -------------------------------------------------------

func SetRetryAfter(h message.Headers, t time.Time) message.Headers {
	return h.Set("Retry-After", FormatHTTPDate(t))
}

func SetRetryAfterSeconds(h message.Headers, seconds int) message.Headers {
	return h.Set("Retry-After", strconv.Itoa(seconds))
}

// --- Allow -------------------------------------------------------

func AllowOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Allow")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetAllow(h message.Headers, methods []string) message.Headers {
	return h.Set("Allow", joinList(methods))
}

// --- Server / User-Agent / Referer / From / Via / Vary / Warning / Age -----

func ServerOption(h message.Headers) (string, bool) { return h.Get("Server") }
func SetServer(h message.Headers, v string) message.Headers {
	return h.Set("Server", v)
}

func UserAgentOption(h message.Headers) (string, bool) { return h.Get("User-Agent") }

func RefererOption(h message.Headers) (string, bool) { return h.Get("Referer") }

func FromOption(h message.Headers) (string, bool) { return h.Get("From") }

func ViaOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Via")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func VaryOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Vary")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetVary(h message.Headers, v []string) message.Headers {
	return h.Set("Vary", joinList(v))
}

func WarningOption(h message.Headers) (string, bool) { return h.Get("Warning") }

func AgeOption(h message.Headers) (int64, bool) {
	v, ok := h.Get("Age")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

// --- Upgrade / TE / Trailer / Max-Forwards / Expect / Early-Data ------------

func UpgradeOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Upgrade")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func SetUpgrade(h message.Headers, protocols []string) message.Headers {
	return h.Set("Upgrade", joinList(protocols))
}

func TEOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("TE")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func TrailerOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Trailer")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func MaxForwardsOption(h message.Headers) (int64, bool) {
	v, ok := h.Get("Max-Forwards")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func ExpectOption(h message.Headers) (string, bool) { return h.Get("Expect") }

func HasEarlyData(h message.Headers) bool { return h.Has("Early-Data") }

// --- Expires / Pragma / Prefer / Preference-Applied ------------------------

func ExpiresOption(h message.Headers) (time.Time, bool) {
	v, ok := h.Get("Expires")
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseHTTPDate(v)
	return t, err == nil
}

func SetExpires(h message.Headers, t time.Time) message.Headers {
	return h.Set("Expires", FormatHTTPDate(t))
}

func PragmaOption(h message.Headers) (string, bool) { return h.Get("Pragma") }

func PreferOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Prefer")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

func PreferenceAppliedOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Preference-Applied")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

// --- Link -------------------------------------------------------

func LinkOption(h message.Headers) ([]string, bool) {
	v, ok := h.Get("Link")
	if !ok {
		return nil, false
	}
	return splitList(v), true
}

// --- Cookie / Set-Cookie (raw header access; parsing lives in the root cookie.go) --

func CookieHeaderOption(h message.Headers) (string, bool) { return h.Get("Cookie") }

func SetCookieHeaders(h message.Headers) []string { return h.GetAll("Set-Cookie") }
