package vellum

import (
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

// StaticHandler maps a mount path to a source directory, grounded on the
// teacher's StaticFS options (AcceptByteRange, CacheDuration) but
// reworked into a RequestHandler over this package's request/response
// model instead of fasthttp's RequestCtx (spec.md §4.6).
type StaticHandler struct {
	mount string
	dir   string

	// AcceptByteRange enables the supplemented Range/Content-Range
	// handling (SPEC_FULL.md §6), mirroring the teacher's StaticFS field
	// of the same name.
	AcceptByteRange bool
}

// NewStaticHandler mounts dir at mount.
func NewStaticHandler(mount, dir string) *StaticHandler {
	return &StaticHandler{mount: mount, dir: dir, AcceptByteRange: true}
}

// resolve implements spec.md §4.6 "Mapping": strip the mount path from
// the request's path to get a relative path, resolve it under dir,
// normalize, and require the result to still live under dir.
func (h *StaticHandler) resolve(requestPath string) (string, bool) {
	rel := strings.TrimPrefix(requestPath, h.mount)
	rel = strings.TrimPrefix(rel, "/")
	cleaned := filepath.Clean(filepath.Join(h.dir, filepath.FromSlash(rel)))
	dirClean := filepath.Clean(h.dir)
	if cleaned != dirClean && !strings.HasPrefix(cleaned, dirClean+string(filepath.Separator)) {
		return "", false
	}
	return cleaned, true
}

// Handle implements RequestHandler. A mapping failure (escape attempt,
// missing file) falls through to the next handler, never 403, per
// spec.md §4.6. Once a file is found, a non-GET/HEAD method yields 405
// Method Not Allowed (spec.md §4.6 "Other methods") instead of falling
// through.
func (h *StaticHandler) Handle(req Request) Result {
	full, ok := h.resolve(req.Target())
	if !ok {
		return PassThrough(req)
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() || isHidden(filepath.Base(full)) {
		return PassThrough(req)
	}

	if req.Method() != message.GET && req.Method() != message.HEAD {
		return Respond(MethodNotAllowed())
	}

	mediaType := detectMediaType(full)
	if accept, ok := headers.AcceptOption(req.Headers); ok && !acceptMatches(accept, mediaType) {
		return Respond(NewResponse(message.StatusNotAcceptable))
	}

	if ims, ok := headers.IfModifiedSinceOption(req.Headers); ok && !info.ModTime().Truncate(time.Second).After(ims) {
		resp := NewResponse(message.StatusNotModified)
		resp.Headers = headers.SetLastModified(resp.Headers, info.ModTime())
		return Respond(resp)
	}

	if h.AcceptByteRange {
		if rangeHeader, ok := headers.RangeOption(req.Headers); ok {
			if resp, ok := h.rangeResponse(full, info, mediaType, rangeHeader, req.Method() == message.HEAD); ok {
				return Respond(resp)
			}
		}
	}

	resp := NewResponse(message.StatusOK)
	resp.Headers = headers.SetContentType(resp.Headers, mediaType)
	resp.Headers = headers.SetLastModified(resp.Headers, info.ModTime())
	resp.Headers = headers.SetContentLength(resp.Headers, info.Size())
	if h.AcceptByteRange {
		resp.Headers = headers.SetAcceptRanges(resp.Headers, "bytes")
	}
	if req.Method() == message.HEAD {
		return Respond(resp)
	}
	resp.Body = message.NewFileEntity(full, info.Size())
	return Respond(resp)
}

// rangeResponse serves a single-range byte-range request (SPEC_FULL.md
// §6). Only the first range of a (possibly multi-range) request is
// honored; a malformed range falls back (ok=false) to the caller's
// full-body response, and an unsatisfiable one yields a 416 response.
func (h *StaticHandler) rangeResponse(full string, info os.FileInfo, mediaType message.MediaType, rangeHeader string, headOnly bool) (Response, bool) {
	spec, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok {
		return Response{}, false
	}
	first, _, _ := strings.Cut(spec, ",")
	startStr, endStr, ok := strings.Cut(first, "-")
	if !ok {
		return Response{}, false
	}

	size := info.Size()
	var start, end int64
	switch {
	case startStr == "" && endStr != "":
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return Response{}, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case startStr != "":
		n, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return Response{}, false
		}
		start = n
		if endStr == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return Response{}, false
			}
		}
	default:
		return Response{}, false
	}

	if start < 0 || end >= size || start > end {
		resp := NewResponse(message.StatusRangeNotSatisfiable)
		resp.Headers = headers.SetContentRange(resp.Headers, fmt.Sprintf("bytes */%d", size))
		return resp, true
	}

	resp := NewResponse(message.StatusPartialContent)
	resp.Headers = headers.SetContentType(resp.Headers, mediaType)
	resp.Headers = headers.SetLastModified(resp.Headers, info.ModTime())
	resp.Headers = headers.SetAcceptRanges(resp.Headers, "bytes")
	length := end - start + 1
	resp.Headers = headers.SetContentLength(resp.Headers, length)
	resp.Headers = headers.SetContentRange(resp.Headers, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	if headOnly {
		return resp, true
	}
	resp.Body = message.NewFileRangeEntity(full, start, length)
	return resp, true
}

// MethodNotAllowed returns the 405 response the static handler's caller
// should issue when a non-GET/HEAD method targets a path this handler
// would otherwise have served (spec.md §4.6 "Other methods").
func MethodNotAllowed() Response {
	resp := NewResponse(message.StatusMethodNotAllowed)
	resp.Headers = headers.SetAllow(resp.Headers, []string{"GET", "HEAD"})
	return resp
}

func isHidden(name string) bool { return strings.HasPrefix(name, ".") }

func detectMediaType(file string) message.MediaType {
	ext := path.Ext(file)
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return message.MediaType{Type: "application", Subtype: "octet-stream"}
	}
	mt, err := message.ParseMediaType(ct)
	if err != nil {
		return message.MediaType{Type: "application", Subtype: "octet-stream"}
	}
	return mt
}

func acceptMatches(acceptValues []string, mt message.MediaType) bool {
	for _, v := range acceptValues {
		am, err := message.ParseMediaType(v)
		if err != nil {
			continue
		}
		if mt.Matches(am) {
			return true
		}
	}
	return false
}
