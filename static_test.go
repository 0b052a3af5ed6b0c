package vellum

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
	return full
}

func TestStaticHandlerServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.txt", "hello world")
	h := NewStaticHandler("/static", dir)

	res := h.Handle(NewRequest(GET, "/static/hello.txt", HTTP11))
	require.True(t, res.IsResponse())
	resp := res.AsResponse()
	assert.Equal(t, StatusOK, resp.Status())

	body, err := io.ReadAll(resp.Body.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestStaticHandlerPassesThroughOnMissingFile(t *testing.T) {
	h := NewStaticHandler("/static", t.TempDir())
	res := h.Handle(NewRequest(GET, "/static/missing.txt", HTTP11))
	assert.False(t, res.IsResponse())
}

func TestStaticHandlerPassesThroughOnDirectoryEscape(t *testing.T) {
	dir := t.TempDir()
	h := NewStaticHandler("/static", dir)
	res := h.Handle(NewRequest(GET, "/static/../../../etc/passwd", HTTP11))
	assert.False(t, res.IsResponse())
}

func TestStaticHandlerMethodNotAllowedForExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.txt", "hi")
	h := NewStaticHandler("/static", dir)

	res := h.Handle(NewRequest(POST, "/static/hello.txt", HTTP11))
	require.True(t, res.IsResponse())
	resp := res.AsResponse()
	assert.Equal(t, StatusMethodNotAllowed, resp.Status())

	allow, ok := resp.Headers.Get("Allow")
	require.True(t, ok)
	assert.Equal(t, "GET, HEAD", allow)
}

func TestStaticHandlerIfModifiedSinceReturns304(t *testing.T) {
	dir := t.TempDir()
	full := writeTestFile(t, dir, "hello.txt", "hi")
	info, err := os.Stat(full)
	require.NoError(t, err)

	h := NewStaticHandler("/static", dir)
	req := NewRequest(GET, "/static/hello.txt", HTTP11)
	req.Headers = req.Headers.Set("If-Modified-Since", info.ModTime().Add(time.Second).UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))

	res := h.Handle(req)
	require.True(t, res.IsResponse())
	assert.Equal(t, StatusNotModified, res.AsResponse().Status())
}

func TestStaticHandlerNotAcceptableWhenAcceptDoesNotMatch(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.json", `{"a":1}`)

	h := NewStaticHandler("/static", dir)
	req := NewRequest(GET, "/static/hello.json", HTTP11)
	req.Headers = req.Headers.Set("Accept", "text/plain")

	res := h.Handle(req)
	require.True(t, res.IsResponse())
	assert.Equal(t, StatusNotAcceptable, res.AsResponse().Status())
}

func TestStaticHandlerByteRangeServesPartialContent(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.txt", "0123456789")

	h := NewStaticHandler("/static", dir)
	req := NewRequest(GET, "/static/hello.txt", HTTP11)
	req.Headers = req.Headers.Set("Range", "bytes=2-4")

	res := h.Handle(req)
	require.True(t, res.IsResponse())
	resp := res.AsResponse()
	assert.Equal(t, StatusPartialContent, resp.Status())

	cr, ok := resp.Headers.Get("Content-Range")
	require.True(t, ok)
	assert.Equal(t, "bytes 2-4/10", cr)
}

func TestStaticHandlerByteRangeUnsatisfiable(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "hello.txt", "0123456789")

	h := NewStaticHandler("/static", dir)
	req := NewRequest(GET, "/static/hello.txt", HTTP11)
	req.Headers = req.Headers.Set("Range", "bytes=100-200")

	res := h.Handle(req)
	require.True(t, res.IsResponse())
	assert.Equal(t, StatusRangeNotSatisfiable, res.AsResponse().Status())
}

func TestStaticHandlerHidesDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".secret", "shh")

	h := NewStaticHandler("/static", dir)
	res := h.Handle(NewRequest(GET, "/static/.secret", HTTP11))
	assert.False(t, res.IsResponse())
}
