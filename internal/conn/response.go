package conn

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
	"github.com/vellum-http/vellum/internal/pool"
	"github.com/vellum-http/vellum/internal/wire"
)

// WriteResponse writes the status line, headers, and body of resp to w,
// per spec.md §4.5 step 10. The body stream is wrapped through
// gzip/deflate first (if Content-Encoding names one of them) and then
// through the chunked writer if Transfer-Encoding: chunked is set;
// chunked framing is always terminal and never itself wrapped again.
// encoder drives the gzip/deflate producer goroutine (spec.md §5
// "encoder" pool); nil falls back to an unpooled goroutine, which is
// only expected in tests that construct a response directly.
func WriteResponse(w *wire.Writer, resp message.HttpResponse, encoder *pool.Dynamic) error {
	if err := w.WriteLine(resp.Line.Version.String() + " " + statusLineText(resp.Line.Status)); err != nil {
		return err
	}
	for _, h := range resp.Headers {
		if err := w.WriteLine(h.Name + ": " + h.Value); err != nil {
			return err
		}
	}
	if err := w.WriteLine(""); err != nil {
		return err
	}

	if err := writeBody(w, resp, encoder); err != nil {
		return err
	}
	return w.Flush()
}

// WriteResponseHeadOnly writes only resp's status line and headers, with
// no body and no terminating chunk, for the two cases spec.md forbids a
// body on: an upgrade response (spec.md §4.5 step 11 hands the raw
// socket off immediately after the header block) and a bodiless status
// (IsBodiless — 1xx/204/304, RFC 7230 §3.3.1/§3.3.2). resp.Body is never
// consulted.
func WriteResponseHeadOnly(w *wire.Writer, resp message.HttpResponse) error {
	if err := w.WriteLine(resp.Line.Version.String() + " " + statusLineText(resp.Line.Status)); err != nil {
		return err
	}
	for _, h := range resp.Headers {
		if err := w.WriteLine(h.Name + ": " + h.Value); err != nil {
			return err
		}
	}
	if err := w.WriteLine(""); err != nil {
		return err
	}
	return w.Flush()
}

func statusLineText(s message.ResponseStatus) string {
	return itoa(s.Code) + " " + s.Reason
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func writeBody(w *wire.Writer, resp message.HttpResponse, encoder *pool.Dynamic) error {
	reader := resp.Body.Reader()
	if reader == nil {
		return nil
	}

	reader, err := wrapEncoding(reader, resp.Headers, encoder)
	if err != nil {
		return err
	}

	if headers.IsChunked(resp.Headers) {
		return writeChunked(w, reader)
	}
	return writeIdentity(w, reader)
}

// runProducer submits fn onto the encoder pool (spec.md §5 "encoder ...
// drive gzip/deflate producer streams"); a nil pool (only expected from
// tests that call WriteResponse directly) falls back to a bare goroutine
// rather than failing the write.
func runProducer(encoder *pool.Dynamic, fn func()) {
	if encoder == nil || encoder.Submit(fn) != nil {
		go fn()
	}
}

// wrapEncoding wraps r through gzip or deflate when Content-Encoding
// names one of them, per spec.md §1 "Compression: an external helper
// provides gzip/deflate wrapping of a byte stream" — klauspost/compress
// is that external helper (DESIGN.md). The copy loop feeding the pipe
// runs on the encoder pool rather than a bare goroutine.
func wrapEncoding(r io.Reader, hdrs message.Headers, encoder *pool.Dynamic) (io.Reader, error) {
	encs, ok := headers.ContentEncodingOption(hdrs)
	if !ok || len(encs) == 0 {
		return r, nil
	}
	switch encs[len(encs)-1] {
	case "gzip":
		pr, pw := io.Pipe()
		gz := gzip.NewWriter(pw)
		runProducer(encoder, func() {
			_, err := io.Copy(gz, r)
			gz.Close()
			pw.CloseWithError(err)
		})
		return pr, nil
	case "deflate":
		pr, pw := io.Pipe()
		fl, err := flate.NewWriter(pw, flate.DefaultCompression)
		if err != nil {
			return nil, errors.Wrap(err, "conn: deflate writer")
		}
		runProducer(encoder, func() {
			_, err := io.Copy(fl, r)
			fl.Close()
			pw.CloseWithError(err)
		})
		return pr, nil
	default:
		return r, nil
	}
}

func writeChunked(w *wire.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := w.WriteChunk(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return w.WriteLastChunk()
		}
		if err != nil {
			return err
		}
	}
}

func writeIdentity(w *wire.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := w.WriteBytes(buf, 0, n); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
