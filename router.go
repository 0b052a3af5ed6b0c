package vellum

import (
	"reflect"
	"strings"

	"github.com/savsgio/gotils/nocopy"

	"github.com/vellum-http/vellum/internal/message"
)

// Middlewares groups before/after/skip middleware lists, carried over
// from the teacher's Router.middlewares field verbatim (spec.md has no
// opinion on middleware ordering beyond coalescing, so the teacher's
// Before/After/Skip vocabulary is kept).
type Middlewares struct {
	Before []RequestHandler
	After  []ResponseFilter
	Skip   []RequestHandler
}

// pathSegment is one parsed element of a registered target path
// (spec.md §3 "Target path"): a literal, a ":name" parameter, or a
// trailing "*"/"*name" wildcard.
type pathSegment struct {
	literal  string
	param    string
	wildcard bool
}

func parseSegments(path string) []pathSegment {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	segs := make([]pathSegment, len(parts))
	for i, p := range parts {
		switch {
		case p == "*":
			segs[i] = pathSegment{wildcard: true}
		case strings.HasPrefix(p, "*") && len(p) > 1:
			segs[i] = pathSegment{wildcard: true, param: p[1:]}
		case strings.HasPrefix(p, ":") && len(p) > 1:
			segs[i] = pathSegment{param: p[1:]}
		default:
			segs[i] = pathSegment{literal: p}
		}
	}
	return segs
}

// matchPath attempts to match requestPath (already normalized, leading
// "/") against a registered target path's segments, returning collected
// parameter bindings on success.
func matchPath(segs []pathSegment, requestPath string) (map[string]string, bool) {
	reqParts := strings.Split(strings.Trim(requestPath, "/"), "/")
	if len(reqParts) == 1 && reqParts[0] == "" {
		reqParts = nil
	}
	params := map[string]string{}
	for i, seg := range segs {
		if seg.wildcard {
			rest := strings.Join(reqParts[i:], "/")
			if seg.param != "" {
				params[seg.param] = rest
			}
			return params, true
		}
		if i >= len(reqParts) {
			return nil, false
		}
		if seg.param != "" {
			params[seg.param] = reqParts[i]
			continue
		}
		if seg.literal != reqParts[i] {
			return nil, false
		}
	}
	if len(segs) != len(reqParts) {
		return nil, false
	}
	return params, true
}

// normalizeMountPath normalizes a mount path: "/" stays "/"; otherwise
// no trailing "/", no ".." segments, no empty segments (spec.md §3
// "Mount path").
func normalizeMountPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, seg := range parts {
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, seg)
	}
	return "/" + strings.Join(out, "/")
}

// underMount reports whether requestPath equals mount or begins with
// mount+"/" (spec.md §3 "Mount path").
func underMount(mount, requestPath string) bool {
	if mount == "/" {
		return true
	}
	return requestPath == mount || strings.HasPrefix(requestPath, mount+"/")
}

// route is one registered (method, path, handler) entry, plus the
// per-view Before/After/Skip lists a View adds on top of its router's
// own Middlewares (teacher's `server.GET(...).UseBefore(...)` chain).
type route struct {
	method  message.RequestMethod
	path    string
	segs    []pathSegment
	handler RequestHandler

	before []RequestHandler
	after  []ResponseFilter
	skip   []RequestHandler
}

// View is the per-route handle returned by a router's Get/Post/... that
// lets a caller attach middlewares scoped to this one route, mirroring
// the teacher's `View` chain (`server.GET(path, view).UseBefore(...)`).
type View struct {
	rt *route
}

// UseBefore appends a request handler that runs, for this route only,
// after the route's router's own Before middlewares and before the
// view itself.
func (v *View) UseBefore(h RequestHandler) *View {
	v.rt.before = append(v.rt.before, h)
	return v
}

// UseAfter appends a response filter that runs, for this route only,
// after the view produces a response and before the router's own After
// filters.
func (v *View) UseAfter(f ResponseFilter) *View {
	v.rt.after = append(v.rt.after, f)
	return v
}

// UseSkip exempts this route from one of its router's own Before
// middlewares, identified by the same func value passed to the
// router's UseBefore (compared by underlying code pointer, since Go
// func values aren't otherwise comparable).
func (v *View) UseSkip(h RequestHandler) *View {
	v.rt.skip = append(v.rt.skip, h)
	return v
}

func funcIdentity(h RequestHandler) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// skips reports whether h was named in any of the route's UseSkip calls.
func (rt *route) skips(h RequestHandler) bool {
	if len(rt.skip) == 0 {
		return false
	}
	id := funcIdentity(h)
	for _, s := range rt.skip {
		if funcIdentity(s) == id {
			return true
		}
	}
	return false
}

// Router is a builder rooted at a mount path, matching the teacher's
// Router/Path DSL shape (field names, noCopy embedding, Use*-style
// registration) generalized from fasthttp-backed routing to the
// request/response model of this package (spec.md §4.4 "Router").
type Router struct {
	noCopy nocopy.NoCopy // nolint:structcheck,unused

	parent *Router
	prefix string

	routes      []*route
	middlewares Middlewares

	subRouters []*Router
}

// NewRouter creates a root router mounted at mount (default "/").
func NewRouter(mount string) *Router {
	return &Router{prefix: normalizeMountPath(mount)}
}

// NewGroup returns a sub-router nested under r at relative path prefix;
// registered paths are concatenated (spec.md §4.4 "A router can be
// nested under another router; relative paths are concatenated").
func (r *Router) NewGroup(prefix string) *Router {
	child := &Router{
		parent: r,
		prefix: normalizeMountPath(r.prefix + "/" + strings.Trim(prefix, "/")),
	}
	r.subRouters = append(r.subRouters, child)
	return child
}

// UseBefore/UseAfter/UseSkip append middlewares to this router's list.
func (r *Router) UseBefore(h RequestHandler) *Router {
	r.middlewares.Before = append(r.middlewares.Before, h)
	return r
}

func (r *Router) UseAfter(f ResponseFilter) *Router {
	r.middlewares.After = append(r.middlewares.After, f)
	return r
}

func (r *Router) UseSkip(h RequestHandler) *Router {
	r.middlewares.Skip = append(r.middlewares.Skip, h)
	return r
}

// register adds a path to this router, normalized and prefixed by the
// router's mount path, and returns the View handle for route-scoped
// middleware attachment.
func (r *Router) register(method message.RequestMethod, path string, view RequestHandler) *View {
	full := r.prefix
	trimmed := strings.Trim(path, "/")
	if trimmed != "" {
		if full == "/" {
			full = "/" + trimmed
		} else {
			full = full + "/" + trimmed
		}
	}
	rt := &route{method: method, path: full, segs: parseSegments(full), handler: view}
	r.routes = append(r.routes, rt)
	return &View{rt: rt}
}

func (r *Router) Get(path string, view RequestHandler) *View {
	return r.register(message.GET, path, view)
}
func (r *Router) Post(path string, view RequestHandler) *View {
	return r.register(message.POST, path, view)
}
func (r *Router) Put(path string, view RequestHandler) *View {
	return r.register(message.PUT, path, view)
}
func (r *Router) Patch(path string, view RequestHandler) *View {
	return r.register(message.PATCH, path, view)
}
func (r *Router) Delete(path string, view RequestHandler) *View {
	return r.register(message.DELETE, path, view)
}
func (r *Router) Head(path string, view RequestHandler) *View {
	return r.register(message.HEAD, path, view)
}
func (r *Router) Options(path string, view RequestHandler) *View {
	return r.register(message.OPTIONS, path, view)
}

// Files registers a built-in static file handler rooted at path, serving
// dir (spec.md §4.4 "files(path, dir)", §4.6). The route matches path
// itself and everything beneath it, since a static handler serves an
// entire subtree rather than one fixed segment count.
func (r *Router) Files(path, dir string) *Router {
	full := r.prefix
	trimmed := strings.Trim(path, "/")
	if trimmed != "" {
		if full == "/" {
			full = "/" + trimmed
		} else {
			full = full + "/" + trimmed
		}
	}
	h := NewStaticHandler(full, dir)
	wildcard := full
	if wildcard == "/" {
		wildcard = "/*"
	} else {
		wildcard += "/*"
	}
	r.routes = append(r.routes, &route{path: full, segs: parseSegments(wildcard), handler: h.Handle})
	return r
}

// AsHandler flattens this router (and its sub-routers) into a single
// targeted RequestHandler usable directly in a server's handler chain.
// Each route is wrapped as a targeted handler (spec.md §4.4 "Targeted
// handler"): on (method,path) match, path parameters are bound as an
// attribute and the view runs through the router's Before/After
// middlewares (and this route's own, if any were attached through its
// View); otherwise the request passes through unchanged. The whole
// router itself first checks the mount-path prefix and passes through
// untouched if the request isn't under it (spec.md §8 testable
// property).
func (r *Router) AsHandler() RequestHandler {
	targeted := make([]RequestHandler, 0, len(r.routes))
	for _, rt := range r.routes {
		targeted = append(targeted, r.targetedHandler(rt))
	}
	for _, sub := range r.subRouters {
		targeted = append(targeted, sub.AsHandler())
	}
	mount := r.prefix
	return func(req Request) Result {
		if !underMount(mount, req.Target()) {
			return PassThrough(req)
		}
		return Coalesce(targeted, req)
	}
}

// targetedHandler wraps rt as a targeted handler (spec.md §4.4): on
// (method,path) match it binds path parameters, then runs the router's
// own Before middlewares (skipping any this route named via UseSkip),
// then the route's own Before, then the view; whichever step returns a
// response short-circuits the rest and still passes through this
// route's own After and then the router's own After (spec.md §9
// "immutable message builder semantics" — filters only ever see a
// response, never mutate one in place).
func (r *Router) targetedHandler(rt *route) RequestHandler {
	return func(req Request) Result {
		if rt.method != "" && req.Method() != rt.method {
			return PassThrough(req)
		}
		params, ok := matchPath(rt.segs, req.Target())
		if !ok {
			return PassThrough(req)
		}
		if len(params) > 0 {
			merged := map[string]string{}
			if existing, ok := req.Attr(message.AttrRequestParameters); ok {
				for k, v := range existing.(map[string]string) {
					merged[k] = v
				}
			}
			for k, v := range params {
				merged[k] = v
			}
			req = req.WithAttr(message.AttrRequestParameters, merged)
		}

		before := r.middlewares.Before
		if len(rt.skip) > 0 {
			filtered := make([]RequestHandler, 0, len(before))
			for _, h := range before {
				if !rt.skips(h) {
					filtered = append(filtered, h)
				}
			}
			before = filtered
		}

		res := Coalesce(before, req)
		if !res.IsResponse() {
			res = Coalesce(rt.before, res.AsRequest())
		}
		if !res.IsResponse() {
			res = rt.handler(res.AsRequest())
		}
		if !res.IsResponse() {
			return res
		}
		resp := res.AsResponse()
		resp = FilterChain(rt.after, req, resp)
		resp = FilterChain(r.middlewares.After, req, resp)
		return Respond(resp)
	}
}

// PathParam reads a path parameter bound by a targeted handler.
func PathParam(req Request, name string) (string, bool) {
	v, ok := req.Attr(message.AttrRequestParameters)
	if !ok {
		return "", false
	}
	s, ok := v.(map[string]string)[name]
	return s, ok
}
