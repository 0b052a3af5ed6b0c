// Package conn implements the per-connection state machine of spec.md
// §4.5: wait-for-byte, read request, dispatch through the handler
// pipeline, filter the response, frame it, apply keep-alive policy,
// write, and decide the next state. It is grounded on
// other_examples' badu-http conn/response/chunkWriter shapes (ConnState
// enum, hijack contract), adapted from net/http.Handler semantics to
// this package's request-or-response coalescing model.
package conn

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
	"github.com/vellum-http/vellum/internal/wire"
)

// ErrBadRequest, ErrUriTooLong and ErrHeaderFieldsTooLarge are the fixed
// read-error → status mappings of spec.md §7 "Input framing errors".
var (
	ErrBadRequest          = errors.New("conn: malformed request")
	ErrUriTooLong          = errors.New("conn: request-line token too long")
	ErrHeaderFieldsTooLarge = errors.New("conn: too many or too large headers")
)

// ErrResponseAborted is the sentinel a handler panics with to kill the
// connection without writing a response (spec.md §7 "ResponseAborted ...
// propagate to kill the connection"). The root package re-exports this
// value so callers never need to import this internal package.
var ErrResponseAborted = errors.New("conn: response aborted")

// ReadRequest parses one HTTP/1.1 request off r, per spec.md §4.5 step
// 2: request line, then up to headerLimit headers (folded continuation
// lines joined with a single space), bounded in total by
// headerLimit×bufferSize.
func ReadRequest(r *wire.Reader, bufferSize, headerLimit int) (message.HttpRequest, error) {
	line, err := r.ReadLine(bufferSize)
	if err != nil {
		if errors.Is(err, wire.ErrLineTooLong) {
			return message.HttpRequest{}, ErrUriTooLong
		}
		return message.HttpRequest{}, err
	}

	reqLine, err := parseRequestLine(line)
	if err != nil {
		return message.HttpRequest{}, err
	}

	hdrs, err := readHeaders(r, bufferSize, headerLimit)
	if err != nil {
		return message.HttpRequest{}, err
	}

	req := message.NewRequest(reqLine.Method, reqLine.Target, reqLine.Version)
	req.Headers = hdrs
	return req, nil
}

func parseRequestLine(line string) (message.RequestLine, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return message.RequestLine{}, ErrBadRequest
	}
	method, target, versionStr := parts[0], parts[1], parts[2]
	if method == "" || target == "" {
		return message.RequestLine{}, ErrBadRequest
	}
	version, err := message.ParseHttpVersion(versionStr)
	if err != nil || !version.IsHTTP11() {
		return message.RequestLine{}, ErrBadRequest
	}
	return message.RequestLine{Method: message.RequestMethod(method), Target: target, Version: version}, nil
}

// readHeaders reads header lines until the terminating blank line,
// folding SP/HTAB-continued lines into the previous header's value
// (spec.md §4.5 step 2). Exceeding headerLimit or the total byte bound
// (headerLimit×bufferSize) yields ErrHeaderFieldsTooLarge.
func readHeaders(r *wire.Reader, bufferSize, headerLimit int) (message.Headers, error) {
	var hdrs message.Headers
	totalBudget := headerLimit * bufferSize
	used := 0

	for {
		line, err := r.ReadLine(bufferSize)
		if err != nil {
			if errors.Is(err, wire.ErrLineTooLong) {
				return nil, ErrHeaderFieldsTooLarge
			}
			return nil, err
		}
		used += len(line)
		if used > totalBudget {
			return nil, ErrHeaderFieldsTooLarge
		}
		if line == "" {
			return hdrs, nil
		}
		if isContinuation(line) && len(hdrs) > 0 {
			last := hdrs[len(hdrs)-1]
			hdrs[len(hdrs)-1] = message.Header{Name: last.Name, Value: last.Value + " " + strings.TrimSpace(line)}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, ErrBadRequest
		}
		if len(hdrs) >= headerLimit {
			return nil, ErrHeaderFieldsTooLarge
		}
		hdrs = append(hdrs, message.Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
}

func isContinuation(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// ReadBody wraps the appropriate body stream for req per its framing
// headers (Content-Length, chunked, or none), positioned on r right
// after the header block.
func ReadBody(r *wire.Reader, hdrs message.Headers) message.Entity {
	if headers.IsChunked(hdrs) {
		return message.NewStreamEntity(&drainingChunkedBody{cr: wire.NewChunkedReader(r.Buffered())}, -1)
	}
	if n, ok := headers.ContentLengthOption(hdrs); ok && n > 0 {
		buf := make([]byte, n)
		if _, err := r.ReadFull(buf); err != nil {
			return message.NewBytesEntity(nil)
		}
		return message.NewBytesEntity(buf)
	}
	return message.EmptyEntity
}

// drainingChunkedBody wraps a ChunkedReader so that Close reads and
// discards whatever of the body a handler left unread, rather than
// leaving the connection's buffered reader positioned mid-body. Since
// requests on one connection are strictly serialized (spec.md §5
// "Ordering"), the next waitForByte would otherwise read stray body
// bytes as the start of the next request line.
type drainingChunkedBody struct {
	cr *wire.ChunkedReader
}

func (d *drainingChunkedBody) Read(p []byte) (int, error) { return d.cr.Read(p) }

func (d *drainingChunkedBody) Close() error {
	_, err := io.Copy(io.Discard, d.cr)
	return err
}

// nopCloser adapts a plain io.Reader to io.ReadCloser for tests that
// build a stream entity directly without a real draining body.
type nopCloser struct{ r io.Reader }

func (n nopCloser) Read(p []byte) (int, error) { return n.r.Read(p) }
func (n nopCloser) Close() error               { return nil }

// ParseContentLength is a small helper kept for callers that only have
// the raw header string (e.g. trailers path, unused by the core but
// handy in tests).
func ParseContentLength(v string) (int64, error) {
	return strconv.ParseInt(v, 10, 64)
}
