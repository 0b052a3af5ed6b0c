package message

// HttpRequest is the immutable value representation of a parsed (or
// handler-constructed) HTTP request. Every With*/Set*/Remove* method
// returns a new value; the receiver is never mutated, so a message that
// has escaped a handler is safe to keep observing (spec.md §9).
type HttpRequest struct {
	Line    RequestLine
	Headers Headers
	Body    Entity
	Attrs   Attributes
}

// NewRequest builds a request with an empty header list, EmptyEntity
// body, and empty attribute bag.
func NewRequest(method RequestMethod, target string, version HttpVersion) HttpRequest {
	return HttpRequest{
		Line:  RequestLine{Method: method, Target: target, Version: version},
		Body:  EmptyEntity,
		Attrs: Attributes{},
	}
}

// Header returns the first value of name, and whether it was present.
func (r HttpRequest) Header(name string) (string, bool) { return r.Headers.Get(name) }

// WithHeader returns a copy of r with (name, value) set (replacing any
// prior occurrences of name).
func (r HttpRequest) WithHeader(name, value string) HttpRequest {
	r.Headers = r.Headers.Set(name, value)
	return r
}

// WithHeaderAdded returns a copy of r with (name, value) appended,
// preserving existing occurrences of name.
func (r HttpRequest) WithHeaderAdded(name, value string) HttpRequest {
	r.Headers = r.Headers.Add(name, value)
	return r
}

// WithHeaderRemoved returns a copy of r with every occurrence of name
// removed.
func (r HttpRequest) WithHeaderRemoved(name string) HttpRequest {
	r.Headers = r.Headers.Removed(name)
	return r
}

// WithBody returns a copy of r with a new body entity.
func (r HttpRequest) WithBody(body Entity) HttpRequest {
	r.Body = body
	return r
}

// WithAttr returns a copy of r with attribute key set to value.
func (r HttpRequest) WithAttr(key string, value interface{}) HttpRequest {
	r.Attrs = r.Attrs.With(key, value)
	return r
}

// Attr returns attribute key, and whether it was present.
func (r HttpRequest) Attr(key string) (interface{}, bool) { return r.Attrs.Get(key) }

// Method is a convenience accessor for r.Line.Method.
func (r HttpRequest) Method() RequestMethod { return r.Line.Method }

// Target is a convenience accessor for r.Line.Target.
func (r HttpRequest) Target() string { return r.Line.Target }

// HttpResponse is the immutable value representation of an HTTP
// response, built by a handler or by the engine's own error paths.
type HttpResponse struct {
	Line    StatusLine
	Headers Headers
	Body    Entity
	Attrs   Attributes
}

// NewResponse builds a response with an empty header list, EmptyEntity
// body, and empty attribute bag.
func NewResponse(status ResponseStatus) HttpResponse {
	return HttpResponse{
		Line:  StatusLine{Version: HTTP11, Status: status},
		Body:  EmptyEntity,
		Attrs: Attributes{},
	}
}

// Header returns the first value of name, and whether it was present.
func (r HttpResponse) Header(name string) (string, bool) { return r.Headers.Get(name) }

// WithHeader returns a copy of r with (name, value) set (replacing any
// prior occurrences of name).
func (r HttpResponse) WithHeader(name, value string) HttpResponse {
	r.Headers = r.Headers.Set(name, value)
	return r
}

// WithHeaderAdded returns a copy of r with (name, value) appended,
// preserving existing occurrences of name (e.g. multiple Set-Cookie).
func (r HttpResponse) WithHeaderAdded(name, value string) HttpResponse {
	r.Headers = r.Headers.Add(name, value)
	return r
}

// WithHeaderRemoved returns a copy of r with every occurrence of name
// removed.
func (r HttpResponse) WithHeaderRemoved(name string) HttpResponse {
	r.Headers = r.Headers.Removed(name)
	return r
}

// WithBody returns a copy of r with a new body entity.
func (r HttpResponse) WithBody(body Entity) HttpResponse {
	r.Body = body
	return r
}

// WithStatus returns a copy of r with a new status.
func (r HttpResponse) WithStatus(status ResponseStatus) HttpResponse {
	r.Line.Status = status
	return r
}

// WithAttr returns a copy of r with attribute key set to value.
func (r HttpResponse) WithAttr(key string, value interface{}) HttpResponse {
	r.Attrs = r.Attrs.With(key, value)
	return r
}

// Attr returns attribute key, and whether it was present.
func (r HttpResponse) Attr(key string) (interface{}, bool) { return r.Attrs.Get(key) }

// Status is a convenience accessor for r.Line.Status.
func (r HttpResponse) Status() ResponseStatus { return r.Line.Status }
