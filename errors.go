package vellum

import (
	"github.com/vellum-http/vellum/internal/conn"
	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

// ErrorHandler maps a handler error and the request that produced it to
// a response (spec.md §6 "errorHandler", §7 "Handler errors").
type ErrorHandler func(err error, req Request) Response

// ErrResponseAborted is the sentinel a handler panics with to kill the
// connection without writing a response (spec.md §7 "ResponseAborted ...
// propagate to kill the connection"). Re-exported from internal/conn so
// callers never need that import.
var ErrResponseAborted = conn.ErrResponseAborted

// DefaultErrorHandler produces a 500 for any handler error, per spec.md
// §7 "default produces 500 and logs with correlate id". Logging happens
// in the connection service, which has the correlate id in the
// request's attributes; this handler only builds the response body.
func DefaultErrorHandler(err error, req Request) Response {
	resp := NewResponse(message.StatusInternalServerError)
	resp.Headers = headers.SetContentType(resp.Headers, message.MediaType{Type: "text", Subtype: "plain"})
	resp.Body = message.NewBytesEntity([]byte("Internal Server Error"))
	return resp
}

// DefaultNotFoundHandler is invoked when no handler in the chain
// produced a response.
func DefaultNotFoundHandler(req Request) Response {
	resp := NewResponse(message.StatusNotFound)
	resp.Headers = headers.SetContentType(resp.Headers, message.MediaType{Type: "text", Subtype: "plain"})
	resp.Body = message.NewBytesEntity([]byte("Not Found"))
	return resp
}
