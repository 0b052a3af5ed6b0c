package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-http/vellum/internal/headers"
	"github.com/vellum-http/vellum/internal/message"
)

func TestFrameTransferEncodingWinsOverContentLength(t *testing.T) {
	resp := message.NewResponse(message.StatusOK)
	resp.Headers = headers.SetTransferEncoding(resp.Headers, []string{"gzip"})
	resp.Headers = headers.SetContentLength(resp.Headers, 100)

	framed := Frame(resp)

	encs, ok := headers.TransferEncodingOption(framed.Headers)
	require.True(t, ok)
	assert.Equal(t, []string{"gzip", "chunked"}, encs)
	assert.False(t, headers.HasContentLength(framed.Headers))
}

func TestFrameTransferEncodingAlreadyEndsInChunkedIsUnchanged(t *testing.T) {
	resp := message.NewResponse(message.StatusOK)
	resp.Headers = headers.SetTransferEncoding(resp.Headers, []string{"chunked"})

	framed := Frame(resp)

	encs, _ := headers.TransferEncodingOption(framed.Headers)
	assert.Equal(t, []string{"chunked"}, encs)
}

func TestFrameKeepsExistingContentLength(t *testing.T) {
	resp := message.NewResponse(message.StatusOK)
	resp.Headers = headers.SetContentLength(resp.Headers, 5)

	framed := Frame(resp)

	n, err := headers.ContentLength(framed.Headers)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestFrameSetsContentLengthFromKnownBodyLength(t *testing.T) {
	resp := message.NewResponse(message.StatusOK).WithBody(message.NewBytesEntity([]byte("hello")))

	framed := Frame(resp)

	n, err := headers.ContentLength(framed.Headers)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestFrameSetsContentLengthZeroWhenContentTypePresentAndBodyEmpty(t *testing.T) {
	resp := message.NewResponse(message.StatusOK)
	resp.Headers = headers.SetContentType(resp.Headers, message.MediaType{Type: "text", Subtype: "plain"})

	framed := Frame(resp)

	n, err := headers.ContentLength(framed.Headers)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestFrameForcesChunkedWhenContentEncodingIsSet(t *testing.T) {
	resp := message.NewResponse(message.StatusOK).WithBody(message.NewBytesEntity([]byte("hello")))
	resp.Headers = headers.SetContentEncoding(resp.Headers, []string{"gzip"})
	resp.Headers = headers.SetContentLength(resp.Headers, 5)

	framed := Frame(resp)

	assert.True(t, headers.IsChunked(framed.Headers), "a compressed body's on-wire length differs from the entity's pre-compression length")
	assert.False(t, headers.HasContentLength(framed.Headers))
}

func TestFrameFallsBackToChunkedForUnknownLengthBody(t *testing.T) {
	resp := message.NewResponse(message.StatusOK).WithBody(message.NewStreamEntity(nopCloser{nil}, -1))

	framed := Frame(resp)

	assert.True(t, headers.IsChunked(framed.Headers))
	assert.False(t, headers.HasContentLength(framed.Headers))
}

func TestIsBodiless(t *testing.T) {
	assert.True(t, IsBodiless(message.ResponseStatus{Code: 101, Reason: "Switching Protocols"}))
	assert.True(t, IsBodiless(message.StatusNoContent))
	assert.True(t, IsBodiless(message.StatusNotModified))
	assert.False(t, IsBodiless(message.StatusOK))
	assert.False(t, IsBodiless(message.ResponseStatus{Code: 302, Reason: "Found"}))
}
