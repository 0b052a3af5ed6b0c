package conn

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-http/vellum/internal/message"
	"github.com/vellum-http/vellum/internal/wire"
)

func newTestReader(s string) *wire.Reader {
	return wire.NewReader(bufio.NewReader(bytes.NewBufferString(s)))
}

func TestReadRequestParsesLineAndHeaders(t *testing.T) {
	r := newTestReader("GET /a/b?x=1 HTTP/1.1\r\nHost: example.com\r\nX-Foo: bar\r\n\r\n")

	req, err := ReadRequest(r, 8192, 100)
	require.NoError(t, err)
	assert.Equal(t, message.GET, req.Method())
	assert.Equal(t, "/a/b?x=1", req.Target())

	host, ok := req.Header("Host")
	require.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestReadRequestFoldsContinuationLines(t *testing.T) {
	r := newTestReader("GET / HTTP/1.1\r\nX-Long: first\r\n second\r\n\r\n")

	req, err := ReadRequest(r, 8192, 100)
	require.NoError(t, err)

	v, ok := req.Header("X-Long")
	require.True(t, ok)
	assert.Equal(t, "first second", v)
}

func TestReadRequestRejectsMalformedRequestLine(t *testing.T) {
	r := newTestReader("GET /\r\n\r\n")
	_, err := ReadRequest(r, 8192, 100)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestReadRequestRejectsTooLongRequestLine(t *testing.T) {
	r := newTestReader("GET " + string(make([]byte, 100)) + " HTTP/1.1\r\n\r\n")
	_, err := ReadRequest(r, 16, 100)
	assert.ErrorIs(t, err, ErrUriTooLong)
}

func TestReadRequestRejectsTooManyHeaders(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < 5; i++ {
		buf.WriteString("X-H: v\r\n")
	}
	buf.WriteString("\r\n")

	r := wire.NewReader(bufio.NewReader(&buf))
	_, err := ReadRequest(r, 8192, 2)
	assert.ErrorIs(t, err, ErrHeaderFieldsTooLarge)
}

func TestReadBodyWithContentLength(t *testing.T) {
	r := newTestReader("hello")
	hdrs := message.Headers{{Name: "Content-Length", Value: "5"}}

	ent := ReadBody(r, hdrs)
	body, err := io.ReadAll(ent.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestReadBodyChunked(t *testing.T) {
	r := newTestReader("5\r\nhello\r\n0\r\n\r\n")
	hdrs := message.Headers{{Name: "Transfer-Encoding", Value: "chunked"}}

	ent := ReadBody(r, hdrs)
	body, err := io.ReadAll(ent.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestReadBodyNoFramingIsEmpty(t *testing.T) {
	r := newTestReader("")
	ent := ReadBody(r, message.Headers{})

	n, ok := ent.Length()
	assert.True(t, ok)
	assert.EqualValues(t, 0, n)
}

// TestReadBodyChunkedClosePositionsReaderPastBodyWithoutConsuming covers
// a handler that never reads the chunked body: Close must still drain
// it, so the connection's buffered reader lands exactly at the start of
// whatever follows (the next request line on a kept-alive connection)
// rather than mid-body.
func TestReadBodyChunkedClosePositionsReaderPastBodyWithoutConsuming(t *testing.T) {
	r := newTestReader("5\r\nhello\r\n0\r\n\r\nGET /next HTTP/1.1\r\n")
	hdrs := message.Headers{{Name: "Transfer-Encoding", Value: "chunked"}}

	ent := ReadBody(r, hdrs)
	require.NoError(t, ent.Close())

	line, err := r.ReadLine(8192)
	require.NoError(t, err)
	assert.Equal(t, "GET /next HTTP/1.1", line)
}
