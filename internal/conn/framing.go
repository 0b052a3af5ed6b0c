package conn

import (
	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

// IsBodiless reports whether resp's status forbids a message body on the
// wire (RFC 7230 §3.3.1/§3.3.2): all 1xx responses, 204 No Content, and
// 304 Not Modified. Neither Transfer-Encoding nor Content-Length may be
// framed onto these (spec.md §8 scenario 4 expects a bare 304 with "no
// body"; a chunked terminator written after such a status would corrupt
// the stream for a kept-alive connection's next request).
func IsBodiless(status message.ResponseStatus) bool {
	return (status.Code >= 100 && status.Code < 200) ||
		status.Code == 204 || status.Code == 304
}

// Frame implements spec.md §4.5 step 7 "Prepare framing", resolved per
// §9's open question in favor of the variant where Transfer-Encoding
// wins over Content-Length when both are present: if the response
// already carries Transfer-Encoding, append "chunked" unless it is
// already last, and drop Content-Length; else if Content-Length is
// already set, keep it; else if the body has a known length n > 0, set
// Content-Length: n; else if length is 0 and Content-Type is present,
// set Content-Length: 0; else set Transfer-Encoding: chunked.
//
// A response carrying Content-Encoding is always framed as chunked,
// regardless of the entity's pre-compression length or any
// Content-Length the handler already set: WriteResponse applies
// gzip/deflate to the body stream after framing runs, so any
// Content-Length computed here would describe the wrong (uncompressed)
// byte count once the encoder wraps it.
//
// Callers must not call Frame on an upgrade response (spec.md §4.5 step
// 11's "upgrade" branch passes the response through untouched) or on a
// response whose status IsBodiless — both skip framing and body-writing
// entirely rather than reaching this function (internal/conn/service.go).
func Frame(resp message.HttpResponse) message.HttpResponse {
	if encs, ok := headers.TransferEncodingOption(resp.Headers); ok {
		if len(encs) == 0 || encs[len(encs)-1] != "chunked" {
			encs = append(encs, "chunked")
		}
		resp.Headers = headers.SetTransferEncoding(resp.Headers, encs)
		resp.Headers = headers.ContentLengthRemoved(resp.Headers)
		return resp
	}

	if ce, ok := headers.ContentEncodingOption(resp.Headers); ok && len(ce) > 0 && ce[len(ce)-1] != "identity" {
		resp.Headers = headers.ContentLengthRemoved(resp.Headers)
		resp.Headers = headers.SetTransferEncoding(resp.Headers, []string{"chunked"})
		return resp
	}

	if headers.HasContentLength(resp.Headers) {
		return resp
	}

	if n, known := resp.Body.Length(); known {
		if n > 0 {
			resp.Headers = headers.SetContentLength(resp.Headers, n)
			return resp
		}
		if n == 0 && headers.HasContentType(resp.Headers) {
			resp.Headers = headers.SetContentLength(resp.Headers, 0)
			return resp
		}
	}

	resp.Headers = headers.SetTransferEncoding(resp.Headers, []string{"chunked"})
	return resp
}
